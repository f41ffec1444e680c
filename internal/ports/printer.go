package ports

import "github.com/alejandrodnm/predictbt/internal/domain"

// ReportPrinter presenta el resultado de una simulación al usuario.
type ReportPrinter interface {
	PrintReport(report domain.Report) error
}
