package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitContainer(t *testing.T) {
	container := InitContainer()
	assert.NotNil(t, container)
	assert.Same(t, container, GetContainer())
}

func TestContainerProvideInvoke(t *testing.T) {
	InitContainer()

	type probe struct {
		name string
	}

	err := Provide(func() *probe {
		return &probe{name: "echolist"}
	})
	require.NoError(t, err)

	err = Invoke(func(p *probe) {
		assert.Equal(t, "echolist", p.name)
	})
	assert.NoError(t, err)
}
