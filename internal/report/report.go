// Package report records where every application of a run was linked, as an
// HCL document that tools and humans can read back.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/stridelink/internal/ctxlog"
	"github.com/vk/stridelink/internal/fsutil"
	"github.com/vk/stridelink/internal/layout"
	"github.com/zclconf/go-cty/cty"
)

// Status of one application in a report.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Entry describes one application.
type Entry struct {
	App    string
	Index  int
	Base   uint64
	Status string
	Error  string
}

// Report is the content of a report file.
type Report struct {
	Layout      layout.Layout
	Template    string
	GeneratedAt time.Time
	Entries     []Entry
}

// Render produces the HCL document for r.
func Render(r *Report) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	root.SetAttributeValue("generated_at", cty.StringVal(r.GeneratedAt.UTC().Format(time.RFC3339)))
	root.SetAttributeValue("template", cty.StringVal(r.Template))
	root.AppendNewline()

	lb := root.AppendNewBlock("layout", nil).Body()
	lb.SetAttributeValue("origin", cty.StringVal(layout.FormatAddress(r.Layout.Origin)))
	lb.SetAttributeValue("stride", cty.StringVal(layout.FormatAddress(r.Layout.Stride)))
	if r.Layout.MaxApps > 0 {
		lb.SetAttributeValue("max_apps", cty.NumberIntVal(int64(r.Layout.MaxApps)))
	}

	for _, e := range r.Entries {
		end, err := r.Layout.End(e.Index)
		if err != nil {
			return nil, fmt.Errorf("application %s: %w", e.App, err)
		}

		root.AppendNewline()
		ab := root.AppendNewBlock("app", []string{e.App}).Body()
		ab.SetAttributeValue("index", cty.NumberIntVal(int64(e.Index)))
		ab.SetAttributeValue("base_address", cty.StringVal(layout.FormatAddress(e.Base)))
		ab.SetAttributeValue("end_address", cty.StringVal(layout.FormatAddress(end)))
		ab.SetAttributeValue("status", cty.StringVal(e.Status))
		if e.Error != "" {
			ab.SetAttributeValue("error", cty.StringVal(e.Error))
		}
	}

	return hclwrite.Format(f.Bytes()), nil
}

// WriteFile renders r into the file at dst.
func WriteFile(ctx context.Context, dst string, r *Report) error {
	logger := ctxlog.FromContext(ctx)

	content, err := Render(r)
	if err != nil {
		return err
	}
	if err := fsutil.EnsureParentDir(dst); err != nil {
		return fmt.Errorf("failed to create directory for report %s: %w", dst, err)
	}
	if err := fsutil.WriteFileAtomic(dst, content, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", dst, err)
	}
	logger.Info("📝 Address report written.", "path", dst, "apps", len(r.Entries))
	return nil
}
