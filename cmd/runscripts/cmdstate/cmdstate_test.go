// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cmdstate

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalHandler(t *testing.T) {
	assert.False(t, Signal(os.Interrupt))

	var outer, inner []os.Signal

	restoreOuter := SetSignalHandler(func(s os.Signal) { outer = append(outer, s) })
	defer restoreOuter()

	restoreInner := SetSignalHandler(func(s os.Signal) { inner = append(inner, s) })

	assert.True(t, Signal(os.Interrupt))
	restoreInner()
	assert.True(t, Signal(os.Kill))

	assert.Equal(t, []os.Signal{os.Interrupt}, inner)
	assert.Equal(t, []os.Signal{os.Kill}, outer)
}
