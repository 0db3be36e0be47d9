package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tlgayhan/pedi-mvp/reference"
	"github.com/tlgayhan/pedi-mvp/scheduler"
	"github.com/tlgayhan/pedi-mvp/selftest"
	"github.com/tlgayhan/pedi-mvp/validation"
)

var (
	errSelfTestFailed = errors.New("self-test failed")
	errQualityIssues  = errors.New("reference data has quality issues")
)

// runSelfTest prints one line per scenario and fails when any scenario fails
func runSelfTest(out io.Writer, asJSON bool) error {
	report := selftest.Run()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, r := range report.Results {
			status := "PASS"
			if !r.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", status, r.Kind, r.Name, r.Message)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d passed, %d failed\n", report.Passed, report.Failed)
	}

	if !report.AllPass {
		return fmt.Errorf("%w: %d of %d scenarios", errSelfTestFailed, report.Failed, len(report.Results))
	}
	return nil
}

// runCheckData loads and validates the datasets of dir, the embedded ones
// when dir is empty. Structural errors always fail; quality issues fail only
// when strict.
func runCheckData(ctx context.Context, out io.Writer, dir string, strict bool) error {
	snap, report, err := scheduler.BuildSnapshot(ctx, reference.NewLoader(dir), validation.NewDataValidator())
	if err != nil {
		fmt.Fprintf(out, "INVALID: %v\n", err)
		return err
	}

	scheduler.LogReport(report)

	fmt.Fprintf(out, "source:          %s\n", snap.Source)
	fmt.Fprintf(out, "drugs:           %d\n", snap.Formulary.Len())
	fmt.Fprintf(out, "toxidromes:      %d\n", snap.ToxEngine.Len())
	fmt.Fprintf(out, "red flags:       %d\n", len(snap.ToxDb.RedFlags))
	fmt.Fprintf(out, "quality issues:  %d\n", report.Issues())

	if strict && report.Issues() > 0 {
		return fmt.Errorf("%w: %d", errQualityIssues, report.Issues())
	}
	return nil
}
