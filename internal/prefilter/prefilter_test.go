package prefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Match(t *testing.T) {
	f := New([]string{"buy now", "limited offer"})

	assert.True(t, f.Match("BUY NOW while stocks last"))
	assert.True(t, f.Match("this is a Limited Offer for you"))
	assert.False(t, f.Match("mayor announces new park"))
}

func TestFilter_Empty_PassesEverything(t *testing.T) {
	f := New(nil)
	assert.False(t, f.Match("buy now"))

	f = New([]string{"  ", ""})
	assert.False(t, f.Match("anything"))
}
