package cerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kazz187/collabspace/pkg/storage"
)

func TestWrapStorageErrors(t *testing.T) {
	missing := fmt.Errorf("tasks/t1.yaml: %w", storage.ErrNotFound)
	escape := fmt.Errorf("../x: %w", storage.ErrInvalidPath)
	disk := errors.New("disk full")

	tests := []struct {
		name string
		err  error
		code Code
		msg  string
	}{
		{name: "read missing", err: WrapStorageReadError("task", missing), code: NotFound, msg: "task not found"},
		{name: "read failure", err: WrapStorageReadError("task", disk), code: Internal, msg: "server error"},
		{name: "write bad path", err: WrapStorageWriteError("task", escape), code: InvalidArgument, msg: "invalid task id"},
		{name: "write failure", err: WrapStorageWriteError("task", disk), code: Internal, msg: "server error"},
		{name: "delete missing", err: WrapStorageDeleteError("session", missing), code: NotFound, msg: "session not found"},
		{name: "delete failure", err: WrapStorageDeleteError("session", disk), code: Internal, msg: "server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsCode(tt.err, tt.code))
			assert.Equal(t, tt.msg, Message(tt.err))
		})
	}
	assert.ErrorIs(t, WrapStorageDeleteError("session", disk), disk)
}
