// internal/model/model_test.go
package model_test

import (
	"testing"

	"github.com/SyedDaiam9101/prospect/internal/model"
)

func TestCapabilitiesHas(t *testing.T) {
	caps := model.CapMeans | model.CapVars

	if !caps.Has(model.CapMeans) {
		t.Error("Expected CapMeans")
	}
	if !caps.Has(model.CapMeans | model.CapVars) {
		t.Error("Expected CapMeans|CapVars")
	}
	if caps.Has(model.CapStochastic) {
		t.Error("Did not expect CapStochastic")
	}
	if caps.Has(model.CapMeans | model.CapStochastic) {
		t.Error("Has must require every requested capability")
	}
}

func TestCapabilitiesString(t *testing.T) {
	cases := []struct {
		caps model.Capabilities
		want string
	}{
		{0, "none"},
		{model.CapMeans, "means"},
		{model.CapMeans | model.CapVars, "means|vars"},
		{model.CapMeans | model.CapVars | model.CapStochastic, "means|vars|stochastic"},
	}
	for _, tc := range cases {
		if got := tc.caps.String(); got != tc.want {
			t.Errorf("Capabilities(%d).String() = %q, expected %q", tc.caps, got, tc.want)
		}
	}
}

func TestArchConsumesIdentifiers(t *testing.T) {
	if model.ArchFeatures.ConsumesIdentifiers() {
		t.Error("ArchFeatures must not consume identifiers")
	}
	if !model.ArchSequence.ConsumesIdentifiers() {
		t.Error("ArchSequence must consume identifiers")
	}
}

func TestBatchLen(t *testing.T) {
	if got := (model.Batch{IDs: []string{"a", "b"}}).Len(); got != 2 {
		t.Errorf("ID batch Len() = %d, expected 2", got)
	}
	if got := (model.Batch{Feats: [][]float64{{1}, {2}, {3}}}).Len(); got != 3 {
		t.Errorf("Feature batch Len() = %d, expected 3", got)
	}
	if got := (model.Batch{}).Len(); got != 0 {
		t.Errorf("Empty batch Len() = %d, expected 0", got)
	}
}
