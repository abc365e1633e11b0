package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/stridelink/internal/config"
	"github.com/vk/stridelink/internal/ctxlog"
	"github.com/vk/stridelink/internal/layout"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// EvalContext exposes the step's variables to expressions.
func EvalContext(vars config.StepVars) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"app":          cty.StringVal(vars.App),
			"index":        cty.NumberIntVal(int64(vars.Index)),
			"base_address": cty.StringVal(layout.FormatAddress(vars.Base)),
		},
	}
}

// Strings evaluates expr to a list of strings, converting a tuple of
// strings (the usual `[...]` literal) to a list.
func (c *Converter) Strings(ctx context.Context, expr hcl.Expression, vars config.StepVars) ([]string, error) {
	var out []string
	if err := c.decode(ctx, expr, vars, cty.List(cty.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// String evaluates expr to a single string.
func (c *Converter) String(ctx context.Context, expr hcl.Expression, vars config.StepVars) (string, error) {
	var out string
	if err := c.decode(ctx, expr, vars, cty.String, &out); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Converter) decode(ctx context.Context, expr hcl.Expression, vars config.StepVars, want cty.Type, target any) error {
	logger := ctxlog.FromContext(ctx)
	if expr == nil {
		return fmt.Errorf("expression is not set")
	}

	val, diags := expr.Value(EvalContext(vars))
	if diags.HasErrors() {
		return diags
	}
	if val.IsNull() {
		return fmt.Errorf("expression at %s evaluated to null", expr.Range())
	}

	converted, err := convert.Convert(val, want)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), want.FriendlyName(), err)
	}
	if !val.Type().Equals(converted.Type()) {
		logger.Debug("Implicitly converted value type.",
			"from", val.Type().FriendlyName(),
			"to", converted.Type().FriendlyName(),
		)
	}
	return gocty.FromCtyValue(converted, target)
}
