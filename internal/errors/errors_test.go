package errors

import (
	"bytes"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/ridge/internal/logging"
)

func TestErrorString(t *testing.T) {
	err := Wrap(fs.ErrNotExist, "open history").WithComponent("report").WithOperation("WriteCSV")
	assert.Equal(t, "report.WriteCSV: open history: file does not exist", err.Error())
	assert.True(t, Is(err, fs.ErrNotExist))
	assert.NotEmpty(t, err.StackTrace())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, Wrapf(nil, "nothing %d", 1))
}

func TestWrapKeepsInnerStack(t *testing.T) {
	inner := New("boom")
	outer := Wrapf(inner, "attempt %d", 3)

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.Equal(t, "attempt 3: boom", outer.Error())

	var target *Error
	require.True(t, As(outer, &target))
	assert.Same(t, outer, target)
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.ErrorLevel, &buf)

	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("bad state")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/optimize", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), "Recovered from panic")
	assert.Contains(t, buf.String(), "bad state")
}
