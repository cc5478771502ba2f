// Package exchange implements the backup protocol: export the whole agenda to
// a JSON file, and import a JSON file as a destructive replacement.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdxmph/agenda-contatos/internal/contacts"
	"github.com/pdxmph/agenda-contatos/internal/files"
	"github.com/pdxmph/agenda-contatos/internal/ui"
)

// ErrLocalShape means an import file is JSON but not an array of contacts
var ErrLocalShape = errors.New("import file must contain an array of contacts")

const (
	msgExportFetchFailed = "Erro ao buscar contatos para exportação."
	msgNothingToExport   = "Não há contatos para exportar."
	msgExported          = "%d contato(s) exportado(s) com sucesso! Arquivo salvo em: %s"
	msgSaveFailed        = "Erro ao salvar arquivo: %s"
	msgReadFailed        = "Erro ao ler arquivo: %s"
	msgBadShape          = "Arquivo JSON inválido. Deve conter um array de contatos."
	msgConfirmImport     = "Você está prestes a importar %d contato(s). ATENÇÃO: Isso irá SUBSTITUIR todos os contatos atuais! Deseja continuar?"
	msgImported          = "%d contato(s) importado(s) com sucesso!"
	msgImportRejected    = "Erro ao importar contatos no servidor."
	msgImportFailed      = "Erro ao importar contatos."
)

// Outcome of an export or import
type Outcome int

const (
	Exported Outcome = iota + 1
	NothingToExport
	Cancelled
	Imported
	Declined
)

func (o Outcome) String() string {
	switch o {
	case Exported:
		return "exported"
	case NothingToExport:
		return "nothing to export"
	case Cancelled:
		return "cancelled"
	case Imported:
		return "imported"
	case Declined:
		return "declined"
	default:
		return "unknown"
	}
}

// Result describes a completed flow. Path and Count are set for Exported and Imported.
type Result struct {
	Outcome Outcome
	Path    string
	Count   int
}

// Gateway is the bulk part of the remote service
type Gateway interface {
	ExportAll(ctx context.Context) ([]contacts.Contact, error)
	ImportReplace(ctx context.Context, list []contacts.Contact) error
}

// FileExchange moves backup bytes in and out of files the user picks
type FileExchange interface {
	Save(ctx context.Context, now time.Time, data []byte) (string, error)
	Open(ctx context.Context) (string, []byte, error)
}

// Reconciler refreshes the displayed collection after an import
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

// Options configure an Orchestrator
type Options struct {
	Gateway    Gateway
	Files      FileExchange
	Reconciler Reconciler
	Notifier   ui.Notifier
	Confirmer  ui.Confirmer
	Logger     *zap.Logger
	Now        func() time.Time
}

// Orchestrator runs export and import flows
type Orchestrator struct {
	opts   Options
	logger *zap.Logger
}

// New creates an orchestrator
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = ui.NotifierFunc(func(ui.Notice) {})
	}
	if opts.Confirmer == nil {
		opts.Confirmer = ui.ConfirmerFunc(func(context.Context, string) bool { return false })
	}
	return &Orchestrator{opts: opts, logger: opts.Logger.Named("exchange")}
}

// Export writes every contact to a file the user picks
func (o *Orchestrator) Export(ctx context.Context) (Result, error) {
	list, err := o.opts.Gateway.ExportAll(ctx)
	if err != nil {
		o.logger.Warn("fetching contacts for export failed", zap.Error(err))
		o.notify(ui.Error(msgExportFetchFailed))
		return Result{}, fmt.Errorf("fetching contacts for export: %w", err)
	}

	if len(list) == 0 {
		o.notify(ui.Info(msgNothingToExport))
		return Result{Outcome: NothingToExport}, nil
	}

	data, err := Marshal(list)
	if err != nil {
		o.notify(ui.Error(fmt.Sprintf(msgSaveFailed, err)))
		return Result{}, err
	}

	path, err := o.opts.Files.Save(ctx, o.opts.Now(), data)
	if errors.Is(err, files.ErrCancelled) {
		o.logger.Debug("export cancelled")
		return Result{Outcome: Cancelled}, nil
	}
	if err != nil {
		o.logger.Warn("writing export failed", zap.Error(err))
		o.notify(ui.Error(fmt.Sprintf(msgSaveFailed, err)))
		return Result{}, err
	}

	o.logger.Info("contacts exported", zap.Int("count", len(list)), zap.String("path", path))
	o.notify(ui.Success(fmt.Sprintf(msgExported, len(list), path)))
	return Result{Outcome: Exported, Path: path, Count: len(list)}, nil
}

// Import replaces every stored contact with the contents of a file the user
// picks, after an explicit confirmation.
func (o *Orchestrator) Import(ctx context.Context) (Result, error) {
	path, data, err := o.opts.Files.Open(ctx)
	if errors.Is(err, files.ErrCancelled) {
		o.logger.Debug("import cancelled")
		return Result{Outcome: Cancelled}, nil
	}
	if err != nil {
		o.logger.Warn("reading import file failed", zap.String("path", path), zap.Error(err))
		if path == "" {
			o.notify(ui.Error(msgImportFailed))
		} else {
			o.notify(ui.Error(fmt.Sprintf(msgReadFailed, err)))
		}
		return Result{}, err
	}

	list, err := ParsePayload(data)
	switch {
	case errors.Is(err, ErrLocalShape):
		o.logger.Warn("import file is not an array", zap.String("path", path))
		o.notify(ui.Error(msgBadShape))
		return Result{}, err
	case err != nil:
		o.logger.Warn("import file is not json", zap.String("path", path), zap.Error(err))
		o.notify(ui.Error(fmt.Sprintf(msgReadFailed, err)))
		return Result{}, err
	}

	if !o.opts.Confirmer.Confirm(ctx, fmt.Sprintf(msgConfirmImport, len(list))) {
		o.logger.Debug("import declined", zap.Int("count", len(list)))
		return Result{Outcome: Declined, Path: path, Count: len(list)}, nil
	}

	if err := o.opts.Gateway.ImportReplace(ctx, list); err != nil {
		o.logger.Warn("import rejected", zap.Int("count", len(list)), zap.Error(err))
		o.notify(ui.Error(msgImportRejected))
		return Result{}, fmt.Errorf("importing contacts: %w", err)
	}

	o.logger.Info("contacts imported", zap.Int("count", len(list)), zap.String("path", path))
	o.notify(ui.Success(fmt.Sprintf(msgImported, len(list))))
	if o.opts.Reconciler != nil {
		if err := o.opts.Reconciler.Reconcile(ctx); err != nil {
			o.logger.Debug("reconcile after import failed", zap.Error(err))
		}
	}
	return Result{Outcome: Imported, Path: path, Count: len(list)}, nil
}

func (o *Orchestrator) notify(n ui.Notice) {
	o.opts.Notifier.Notify(n)
}

// Marshal renders contacts as an indented JSON array
func Marshal(list []contacts.Contact) ([]byte, error) {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding contacts: %w", err)
	}
	return data, nil
}

// ParsePayload decodes an import file. Input that is not JSON fails with the
// decoder's error; JSON that is not an array of objects fails with ErrLocalShape.
func ParsePayload(data []byte) ([]contacts.Contact, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding import file: %w", err)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrLocalShape
	}

	var list []contacts.Contact
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocalShape, err)
	}
	if list == nil {
		list = []contacts.Contact{}
	}
	return list, nil
}
