package sheet

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/model"
)

// Store is a whole-table persistence backend. There are no row-level
// operations; Replace clears the sheet and writes values starting at row 1.
type Store interface {
	ReadAll(ctx context.Context) (*Table, error)
	Append(ctx context.Context, rows [][]string) error
	Replace(ctx context.Context, values [][]string) error
}

// Open creates the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.SheetConfig) (Store, error) {
	switch cfg.Backend {
	case "google", "":
		return NewGoogleStore(ctx, cfg.CredentialsFile, cfg.SpreadsheetID, cfg.SheetName)
	case "csv":
		return NewCSVStore(cfg.Path), nil
	case "xlsx":
		return NewXLSXStore(cfg.Path, cfg.SheetName), nil
	default:
		return nil, eris.Errorf("sheet: unknown backend %q", cfg.Backend)
	}
}

// AppendLeads appends leads to the table whose current state is t, laid out
// in t's header order. An empty sheet gets the default header first.
func AppendLeads(ctx context.Context, s Store, t *Table, leads []model.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	header := t.Header
	var rows [][]string
	if len(header) == 0 {
		header = model.DefaultHeader
		rows = append(rows, append([]string(nil), header...))
	}
	for _, l := range leads {
		rows = append(rows, LeadRow(header, l))
	}

	if err := s.Append(ctx, rows); err != nil {
		return 0, eris.Wrap(err, "sheet: append leads")
	}

	zap.L().Info("sheet: appended leads",
		zap.Int("leads", len(leads)),
		zap.Bool("wrote_header", len(t.Header) == 0),
	)
	return len(leads), nil
}
