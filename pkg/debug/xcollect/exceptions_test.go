package xcollect

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exceptionsData(t *testing.T, c *ExceptionsCollector) ExceptionsData {
	t.Helper()
	data, ok := c.Collect().(ExceptionsData)
	require.True(t, ok)
	return data
}

func TestExceptions_AddException(t *testing.T) {
	c := NewExceptions(false)
	c.AddException(nil)
	c.AddException(errors.New("boom"))

	data := exceptionsData(t, c)
	require.Equal(t, 1, data.Count)
	require.Len(t, data.Exceptions, 1)

	ex := data.Exceptions[0]
	assert.Equal(t, "boom", ex.Message)
	assert.Equal(t, "*errors.errorString", ex.Type)
	assert.True(t, strings.HasSuffix(ex.File, "exceptions_test.go"), ex.File)
	assert.Positive(t, ex.Line)
	assert.NotEmpty(t, ex.Stack)
	assert.LessOrEqual(t, len(ex.Stack), maxStackFrames)
	assert.Contains(t, ex.Stack[0], "TestExceptions_AddException")
	assert.Len(t, c.Errors(), 1)
}

func TestExceptions_Chain(t *testing.T) {
	root := errors.New("root")
	mid := fmt.Errorf("mid: %w", root)
	joined := errors.Join(mid, errors.New("other"))

	c := NewExceptions(true)
	c.AddException(joined)

	data := exceptionsData(t, c)
	assert.Equal(t, 1, data.Count, "计数只包含直接记录的错误")
	require.Len(t, data.Exceptions, 4)

	var got []string
	var depths []int
	for _, ex := range data.Exceptions {
		got = append(got, ex.Message)
		depths = append(depths, ex.Depth)
	}
	assert.Equal(t, []string{"mid: root\nother", "mid: root", "root", "other"}, got)
	assert.Equal(t, []int{0, 1, 2, 1}, depths)
	assert.Empty(t, data.Exceptions[1].Stack, "链中的错误不带调用栈")
}

func TestExceptions_SetChain(t *testing.T) {
	c := NewExceptions(true)
	c.AddException(fmt.Errorf("wrap: %w", errors.New("inner")))
	assert.Len(t, exceptionsData(t, c).Exceptions, 2)

	c.SetChain(false)
	assert.Len(t, exceptionsData(t, c).Exceptions, 1)
}

func TestExceptions_Empty(t *testing.T) {
	data := exceptionsData(t, NewExceptions(true))
	assert.Zero(t, data.Count)
	assert.NotNil(t, data.Exceptions)
}
