package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/api/internal/infrastructure/crypto"
)

func TestSealThenOpen(t *testing.T) {
	ch := crypto.Default()

	var sealed bytes.Buffer
	a := &app{sealer: ch, in: strings.NewReader(`{"name":"Widget"}` + "\n"), out: &sealed}
	require.NoError(t, a.run(context.Background(), "seal", nil))

	var opened bytes.Buffer
	a = &app{sealer: ch, in: strings.NewReader("  " + sealed.String()), out: &opened}
	require.NoError(t, a.run(context.Background(), "open", nil))

	assert.Equal(t, `{"name":"Widget"}`+"\n", opened.String())
}

func TestOpenRejectsGarbage(t *testing.T) {
	a := &app{sealer: crypto.Default(), in: strings.NewReader("%%%"), out: &bytes.Buffer{}}
	err := a.run(context.Background(), "open", nil)
	assert.ErrorIs(t, err, crypto.ErrUnreadable)
}

func TestNeedID(t *testing.T) {
	id, err := needID([]string{"12"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, bad := range [][]string{nil, {"0"}, {"-1"}, {"x"}} {
		_, err := needID(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestUnknownCommand(t *testing.T) {
	a := &app{out: &bytes.Buffer{}}
	err := a.run(context.Background(), "frobnicate", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "frobnicate"`)
}
