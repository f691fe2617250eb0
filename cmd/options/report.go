package options

import (
	"github.com/alexeldeib/dspm-netconfig/pkg/message"
	"github.com/alexeldeib/dspm-netconfig/pkg/reconcilers"
)

// ProgressPrinter reports each processed resource on one line.
func ProgressPrinter(printer *message.Printer) reconcilers.ProgressFunc {
	return func(p reconcilers.Progress) {
		switch p.Status {
		case reconcilers.Failed:
			printer.Error("(%d/%d) %s [%s]: %s", p.Processed, p.Total, p.Name, p.Region, p.Status)
		case reconcilers.Skipped:
			printer.Info("(%d/%d) %s [%s]: %s", p.Processed, p.Total, p.Name, p.Region, p.Status)
		default:
			printer.Success("(%d/%d) %s [%s]: %s", p.Processed, p.Total, p.Name, p.Region, p.Status)
		}
	}
}

// Report prints skips and failures, then the summary. Failures are warnings: the run itself succeeded.
func Report(printer *message.Printer, result *reconcilers.Result) {
	printer.Section("summary")
	for _, outcome := range result.Skipped() {
		printer.Info("%s", outcome)
	}
	for _, outcome := range result.Failed() {
		printer.Warning("%s", outcome)
	}
	if len(result.Failed()) > 0 {
		printer.Warning("%s", result.Summary())
		return
	}
	printer.Done("%s", result.Summary())
}
