package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wehubfusion/Fabula/pkg/errors"
	"github.com/wehubfusion/Fabula/pkg/story/field"
	"github.com/wehubfusion/Fabula/pkg/story/registry"
)

func newTestHost(t *testing.T) *Host {
	h, err := NewHost(zap.NewNop())
	require.NoError(t, err)
	return h
}

func TestHost_RegisterAndCallGoFunc(t *testing.T) {
	h := newTestHost(t)
	called := 0
	require.NoError(t, h.RegisterFunc("ping", func() { called++ }))

	require.True(t, h.Has("ping"))
	require.NoError(t, h.Call("ping"))
	assert.Equal(t, 1, called)
}

func TestHost_RegisterFuncValidates(t *testing.T) {
	h := newTestHost(t)
	assert.Error(t, h.RegisterFunc("", func() {}))
	assert.Error(t, h.RegisterFunc("x", nil))
}

func TestHost_RegisterAndCallScript(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.RegisterScript("greet", `(function() { globalThis.greeted = true; })`))

	require.NoError(t, h.Call("greet"))
	val := h.vm.Get("greeted")
	require.NotNil(t, val)
	assert.True(t, val.ToBoolean())
}

func TestHost_RegisterScriptRejectsNonFunction(t *testing.T) {
	h := newTestHost(t)
	assert.Error(t, h.RegisterScript("notfn", `42`))
	assert.Error(t, h.RegisterScript("broken", `function(`))
}

func TestHost_CallUnknownFunction(t *testing.T) {
	h := newTestHost(t)
	err := h.Call("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownFunction)
}

func TestHost_GoFuncTakesPrecedenceOverScript(t *testing.T) {
	h := newTestHost(t)
	goCalled := false
	require.NoError(t, h.RegisterScript("both", `(function() { globalThis.scriptRan = true; })`))
	require.NoError(t, h.RegisterFunc("both", func() { goCalled = true }))

	require.NoError(t, h.Call("both"))
	assert.True(t, goCalled)
	scriptRan := h.vm.Get("scriptRan")
	assert.True(t, scriptRan == nil || !scriptRan.ToBoolean())
}

func TestHost_SandboxRemovesRuntimeGlobals(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.RegisterScript("probe",
		`(function() { globalThis.probeResult = typeof require + "," + typeof process; })`))
	require.NoError(t, h.Call("probe"))
	assert.Equal(t, "undefined,undefined", h.vm.Get("probeResult").String())
}

func TestHost_BindStoryExposesVariablesAndInventory(t *testing.T) {
	h := newTestHost(t)
	vars := registry.NewVariables(zap.NewNop())
	require.NoError(t, vars.Define("gold", field.TypeWhole, 5))
	inv := registry.NewInventory()
	inv.Add(3)

	require.NoError(t, h.BindStory(vars, inv))
	require.NoError(t, h.RegisterScript("trade", `(function() {
		if (story.getVariable("gold") >= 5 && story.hasItem(3)) {
			story.removeItem(3);
			story.addItem(4);
			story.setVariable("gold", story.getVariable("gold") - 5);
		}
	})`))

	require.NoError(t, h.Call("trade"))
	gold, _ := vars.Value("gold")
	assert.Equal(t, 0, gold)
	assert.False(t, inv.Exists(3))
	assert.True(t, inv.Exists(4))
	assert.Equal(t, 1, inv.Count(4))
}
