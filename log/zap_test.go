// MIT License
//
// Copyright (c) 2025-2026 Failout Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package log

import (
	"bytes"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfo(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := New(InfoLevel, buffer)

	logger.Info("test info")
	flushLogger(t, logger)

	actual, err := extractMessage(buffer.Bytes())
	require.NoError(t, err)
	require.Equal(t, "test info", actual)

	lvl, err := extractLevel(buffer.Bytes())
	require.NoError(t, err)
	require.Equal(t, "info", lvl)
	require.Equal(t, InfoLevel, logger.LogLevel())
}

func TestInfof(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := New(InfoLevel, buffer)

	logger.Infof("watching %d peers", 3)
	flushLogger(t, logger)

	actual, err := extractMessage(buffer.Bytes())
	require.NoError(t, err)
	require.Equal(t, "watching 3 peers", actual)
}

func TestDebug(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := New(DebugLevel, buffer)

	logger.Debug("test debug")
	flushLogger(t, logger)

	actual, err := extractMessage(buffer.Bytes())
	require.NoError(t, err)
	require.Equal(t, "test debug", actual)
	require.Equal(t, DebugLevel, logger.LogLevel())
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := New(InfoLevel, buffer)

	logger.Debug("hidden")
	flushLogger(t, logger)

	require.Empty(t, buffer.Bytes())
}

func TestWarn(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := New(WarningLevel, buffer)

	logger.Warn("test warning")
	flushLogger(t, logger)

	actual, err := extractMessage(buffer.Bytes())
	require.NoError(t, err)
	require.Equal(t, "test warning", actual)

	lvl, err := extractLevel(buffer.Bytes())
	require.NoError(t, err)
	require.Equal(t, "warn", lvl)
}

func TestError(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := New(ErrorLevel, buffer)

	logger.Error("test error")
	flushLogger(t, logger)

	actual, err := extractMessage(buffer.Bytes())
	require.NoError(t, err)
	require.Equal(t, "test error", actual)

	lvl, err := extractLevel(buffer.Bytes())
	require.NoError(t, err)
	require.Equal(t, "error", lvl)
}

func TestPanic(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := New(PanicLevel, buffer)

	assert.Panics(t, func() {
		logger.Panic("test panic")
	})
}

func TestWith(t *testing.T) {
	t.Run("With adds structured fields to output", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := New(InfoLevel, buffer)

		logger.With("cluster", "cluster-a", "peers", 2).Info("reconciled")
		flushLogger(t, logger)

		var payload map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(buffer.Bytes(), &payload))
		msg, err := extractMessage(buffer.Bytes())
		require.NoError(t, err)
		require.Equal(t, "reconciled", msg)
		require.Contains(t, payload, "cluster")
		require.Contains(t, payload, "peers")
	})

	t.Run("With returns the same logger when keyValues is empty", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := New(InfoLevel, buffer)
		assert.Equal(t, logger, logger.With())
	})

	t.Run("With odd keyValues records the orphan under _", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := New(InfoLevel, buffer)

		logger.With("a", 1, "orphan").Info("msg")
		flushLogger(t, logger)

		var payload map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(buffer.Bytes(), &payload))
		require.Contains(t, payload, "a")
		require.Contains(t, payload, "_")
	})

	t.Run("With skips non-string keys", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := New(InfoLevel, buffer)

		sub := logger.With(42, "ignored", "k", "v")
		sub.Info("msg")
		flushLogger(t, sub.(*Zap))

		var payload map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(buffer.Bytes(), &payload))
		require.Contains(t, payload, "k")
	})

	t.Run("DiscardLogger.With returns DiscardLogger", func(t *testing.T) {
		assert.Equal(t, DiscardLogger, DiscardLogger.With("cluster", "test"))
	})
}

func TestLogOutput(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := New(InfoLevel, buffer)
	outputs := logger.LogOutput()
	require.Len(t, outputs, 1)
	assert.Equal(t, buffer, outputs[0])
}

func TestDiscardLogger(t *testing.T) {
	DiscardLogger.Debug("ignored")
	DiscardLogger.Debugf("ignored %s", "arg")
	DiscardLogger.Info("ignored")
	DiscardLogger.Infof("ignored %s", "arg")
	DiscardLogger.Warn("ignored")
	DiscardLogger.Warnf("ignored %s", "arg")
	DiscardLogger.Error("ignored")
	DiscardLogger.Errorf("ignored %s", "arg")

	require.Equal(t, InvalidLevel, DiscardLogger.LogLevel())
	require.Len(t, DiscardLogger.LogOutput(), 1)
	assert.Panics(t, func() { DiscardLogger.Panic("boom") })
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARNING", WarningLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "FATAL", FatalLevel.String())
	assert.Equal(t, "PANIC", PanicLevel.String())
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INVALID", InvalidLevel.String())
}

func flushLogger(t *testing.T, logger *Zap) {
	t.Helper()
	require.NoError(t, logger.logger.Sync())
}

func extractMessage(raw []byte) (string, error) {
	payload := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", err
	}
	if msg, ok := payload["msg"]; ok {
		return strconv.Unquote(string(msg))
	}
	return "", nil
}

func extractLevel(raw []byte) (string, error) {
	payload := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", err
	}
	if lvl, ok := payload["level"]; ok {
		return strconv.Unquote(string(lvl))
	}
	return "", nil
}
