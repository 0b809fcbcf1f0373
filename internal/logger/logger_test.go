package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		level   logrus.Level
		wantErr bool
	}{
		{name: "defaults", opts: Options{}, level: logrus.InfoLevel},
		{name: "debug json", opts: Options{Level: "DEBUG", Format: "json"}, level: logrus.DebugLevel},
		{name: "warn stdout", opts: Options{Level: "warn", Output: "stdout"}, level: logrus.WarnLevel},
		{name: "bad level", opts: Options{Level: "loud"}, wantErr: true},
		{name: "bad format", opts: Options{Format: "xml"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, closer, err := New(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.level, l.GetLevel())
			assert.NoError(t, closer.Close())
		})
	}
}

func TestNew_File(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "troll2nc.log")
	l, closer, err := New(Options{Format: "json", Output: path})
	require.NoError(t, err)

	l.WithField("input", "BB_WELL_07.csv").Info("converted")
	require.NoError(t, closer.Close())
	f, ok := closer.(*os.File)
	require.True(t, ok)
	_, err = f.Write([]byte("x"))
	assert.Error(err, "file is closed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal("converted", entry["message"])
	assert.Equal("info", entry["level"])
	assert.Equal("BB_WELL_07.csv", entry["input"])
}

func TestNew_Rotated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "troll2nc.log")
	l, closer, err := New(Options{Output: path, MaxAge: 7})
	require.NoError(t, err)
	defer closer.Close()
	lj, ok := l.Out.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Same(t, lj, closer)
	assert.Equal(t, path, lj.Filename)
	assert.Equal(t, 7, lj.MaxAge)
}
