/*
 * logging_test.go, part of gopenff.
 *
 * Copyright 2026 The gopenff authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/rmera/gopenff/internal/config"
)

func TestNew(Te *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New(config.LogConfig{Level: "warn", Format: format})
		require.NoError(Te, err, format)
		assert.True(Te, l.Core().Enabled(zapcore.WarnLevel))
		assert.False(Te, l.Core().Enabled(zapcore.InfoLevel))
	}
	_, err := New(config.LogConfig{Level: "chatty", Format: "json"})
	assert.Error(Te, err)
}
