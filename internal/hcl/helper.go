package hcl

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/stridelink/internal/config"
	"github.com/vk/stridelink/internal/ctxlog"
	"github.com/vk/stridelink/internal/layout"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional expression fields with
// zero-width placeholder expressions, so a nil check is insufficient: a real
// attribute occupies bytes in the file, a placeholder does not.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		return false
	}

	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// ParseExpression parses src as a per-step expression and rejects references
// to variables other than config.StepVariables.
func ParseExpression(src, filename string) (hcl.Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	if err := checkVariables(expr); err != nil {
		return nil, err
	}
	return expr, nil
}

// checkVariables rejects references to unknown variables up front, so a typo
// fails at load time instead of in the middle of a run.
func checkVariables(expr hcl.Expression) error {
	var diags hcl.Diagnostics
	for _, traversal := range expr.Variables() {
		name := traversal.RootName()
		if slices.Contains(config.StepVariables, name) {
			continue
		}
		rng := traversal.SourceRange()
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown variable",
			Detail:   fmt.Sprintf("There is no variable named %q. Available variables: %v.", name, config.StepVariables),
			Subject:  &rng,
		})
	}
	if diags.HasErrors() {
		return diags
	}
	return nil
}

// decodeAddress evaluates a static address expression. Numbers are taken as
// is; strings are parsed with their 0x/0o/0b prefix.
func decodeAddress(expr hcl.Expression, attrName string) (uint64, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return 0, diags
	}
	if val.IsNull() || !val.IsKnown() {
		return 0, fmt.Errorf("%s must not be null", attrName)
	}

	switch {
	case val.Type() == cty.Number:
		var out uint64
		if err := gocty.FromCtyValue(val, &out); err != nil {
			return 0, fmt.Errorf("%s: %w", attrName, err)
		}
		return out, nil
	case val.Type() == cty.String:
		out, err := layout.ParseAddress(val.AsString())
		if err != nil {
			return 0, fmt.Errorf("%s: %w", attrName, err)
		}
		return out, nil
	default:
		return 0, fmt.Errorf("%s must be a number or a string, got %s", attrName, val.Type().FriendlyName())
	}
}

// resolvePath anchors a relative path at baseDir.
func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
