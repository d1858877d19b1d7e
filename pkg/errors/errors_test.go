package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapFormatsAndUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeSource, "download survey", cause)

	require.Equal(t, "download survey: connection refused", err.Error())
	require.ErrorIs(t, err, cause)
	require.Equal(t, "no rows", Wrap(CodeInvalidTable, "no rows", nil).Error())
	require.Equal(t, "boom", Wrap(CodeCatalog, "", errors.New("boom")).Error())
}

func TestCodeOfFindsOutermostAppError(t *testing.T) {
	inner := Wrap(CodeSource, "fetch", nil)
	outer := fmt.Errorf("refresh: %w", Wrap(CodeCatalog, "load", inner))

	require.Equal(t, CodeCatalog, CodeOf(outer))
	require.True(t, IsCode(outer, CodeCatalog))
	require.False(t, IsCode(outer, CodeSource))
	require.Empty(t, CodeOf(errors.New("plain")))
	require.False(t, IsCode(nil, ""))
}
