// SPDX-License-Identifier: GPL-3.0-or-later

package errclass

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, "", Classify(nil))
	assert.Equal(t, ETIMEDOUT, Classify(context.DeadlineExceeded))
	assert.Equal(t, EINTR, Classify(context.Canceled))
	assert.Equal(t, ECLOSED, Classify(net.ErrClosed))
	assert.Equal(t, EGENERIC, Classify(errors.New("unknown error")))
}

func TestClassifyWrapped(t *testing.T) {
	wrapped := &net.OpError{Op: "read", Err: context.DeadlineExceeded}
	assert.Equal(t, ETIMEDOUT, Classify(wrapped))
}
