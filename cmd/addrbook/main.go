package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/smileynet/addrbook/internal/api"
	"github.com/smileynet/addrbook/internal/book"
	"github.com/smileynet/addrbook/internal/browser"
	"github.com/smileynet/addrbook/internal/config"
	"github.com/smileynet/addrbook/internal/contact"
	"github.com/smileynet/addrbook/internal/logging"
	"github.com/smileynet/addrbook/internal/server"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Globals are flags shared by every command.
type Globals struct {
	Config   string `help:"Project config file (default .addrbook/config.yaml)." placeholder:"PATH"`
	APIURL   string `name:"api-url" help:"Backend base URL." placeholder:"URL"`
	LogLevel string `help:"Log level: debug, info, warn or error." placeholder:"LEVEL"`
}

// CLI is the top-level command structure for addrbook.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	Browse  BrowseCmd        `cmd:"" default:"1" help:"Browse and edit contacts interactively."`
	List    ListCmd          `cmd:"" help:"Print contacts as a table."`
	Add     AddCmd           `cmd:"" help:"Create a contact."`
	Update  UpdateCmd        `cmd:"" help:"Replace a contact's fields."`
	Delete  DeleteCmd        `cmd:"" help:"Delete a contact."`
	Serve   ServeCmd         `cmd:"" help:"Run the reference address book backend."`
}

// ContactFlags are the form fields accepted by add and update.
type ContactFlags struct {
	FirstName string `help:"First name (letters and spaces)." required:""`
	LastName  string `help:"Last name (letters and spaces)." required:""`
	Email     string `help:"Email address." required:""`
	Phone     string `help:"Phone number, e.g. 555-123-4567." required:""`
	City      string `help:"City (letters and spaces)." required:""`
	Labels    string `help:"Free-form labels."`
}

func (f ContactFlags) form() contact.Form {
	return contact.Form{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		Phone:     f.Phone,
		City:      f.City,
		Labels:    f.Labels,
	}
}

// loadConfig loads layered config from user and project paths, then applies
// env and flag overrides.
func (g *Globals) loadConfig() (*config.Config, error) {
	project := ".addrbook/config.yaml"
	if g.Config != "" {
		if _, err := os.Stat(g.Config); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		project = g.Config
	}
	cfg, err := config.LoadLayered(
		os.ExpandEnv("$HOME/.config/addrbook/config.yaml"),
		project,
	)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if g.APIURL != "" {
		cfg.API.BaseURL = g.APIURL
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newBook wires the REST client behind the entity service.
func newBook(cfg *config.Config, log *zap.Logger) (*book.Book, error) {
	client, err := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithListAttempts(cfg.API.ListAttempts),
		api.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return book.New(client), nil
}

// setup loads config and builds the stderr logger and the book used by the
// one-shot commands.
func (g *Globals) setup() (*config.Config, *zap.Logger, *book.Book, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, nil, nil, err
	}
	bk, err := newBook(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, bk, nil
}

// requestError marks a failed backend call so it maps to exitRequest.
type requestError struct {
	op  string
	err error
}

func (e *requestError) Error() string { return e.op + ": " + e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// validationError lists the form fields that failed validation.
type validationError struct {
	fields []contact.Field
}

func (e *validationError) Error() string {
	names := make([]string, len(e.fields))
	for i, f := range e.fields {
		names[i] = f.String()
	}
	return "invalid " + strings.Join(names, ", ")
}

// --- browse ---

// BrowseCmd opens the interactive table.
type BrowseCmd struct{}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run builds real dependencies and launches the TUI.
func (b *BrowseCmd) Run(g *Globals) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("browse: requires a terminal (TTY)")
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}

	// The terminal belongs to the TUI: log to a file or not at all.
	log := zap.NewNop()
	if cfg.Log.File != "" {
		if log, err = logging.New(cfg.Log.Level, cfg.Log.File); err != nil {
			return fmt.Errorf("browse: %w", err)
		}
	}
	defer log.Sync() //nolint:errcheck // best-effort flush on exit

	bk, err := newBook(cfg, log)
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}

	m := browser.NewModel(bk,
		browser.WithTimeout(cfg.API.Timeout),
		browser.WithHighlightDuration(cfg.UI.Highlight),
		browser.WithNoticeDuration(cfg.UI.Notice),
		browser.WithLogger(log),
	)
	prog := tea.NewProgram(m, tea.WithAltScreen())
	return b.run(true, prog)
}

// run executes the tea program, enabling testable wiring.
func (b *BrowseCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("browse: requires a terminal (TTY)")
	}
	_, err := prog.Run()
	return err
}

// --- list ---

// ListCmd prints the contact table.
type ListCmd struct {
	Search string `help:"Only show contacts whose name contains TERM." placeholder:"TERM"`
}

type contactLister interface {
	Addresses(ctx context.Context) ([]contact.Contact, error)
}

// Run executes the list command.
func (l *ListCmd) Run(g *Globals) error {
	_, log, bk, err := g.setup()
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	defer log.Sync() //nolint:errcheck // best-effort flush on exit

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return l.run(ctx, os.Stdout, bk)
}

func (l *ListCmd) run(ctx context.Context, w io.Writer, lister contactLister) error {
	contacts, err := lister.Addresses(ctx)
	if err != nil {
		return &requestError{op: "list", err: err}
	}
	writeTable(w, contacts, l.Search)
	return nil
}

// writeTable prints the contacts whose name contains term, numbered by their
// position in the full list like the interactive table.
func writeTable(w io.Writer, contacts []contact.Contact, term string) {
	cols := browser.Columns()
	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = col.Title
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for i, c := range contacts {
		if !contact.Matches(c.SearchKey(), term) {
			continue
		}
		table.Append([]string{strconv.Itoa(i + 1), c.City, c.Labels, c.FullName(), c.Phone})
	}
	table.Render()
}

// --- add ---

// AddCmd validates and creates a contact.
type AddCmd struct {
	Fields ContactFlags `embed:""`
}

type contactAdder interface {
	Add(ctx context.Context, c contact.Contact) (contact.Contact, error)
}

// Run executes the add command.
func (a *AddCmd) Run(g *Globals) error {
	_, log, bk, err := g.setup()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	defer log.Sync() //nolint:errcheck // best-effort flush on exit

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return a.run(ctx, os.Stdout, bk)
}

func (a *AddCmd) run(ctx context.Context, w io.Writer, adder contactAdder) error {
	res := contact.Validate(a.Fields.form(), "")
	if !res.Valid() {
		return fmt.Errorf("add: %w", &validationError{fields: res.Invalid})
	}
	saved, err := adder.Add(ctx, res.Contact)
	if err != nil {
		return &requestError{op: "add", err: err}
	}
	fmt.Fprintf(w, "added %s", saved.FullName())
	if !saved.ID.IsZero() {
		fmt.Fprintf(w, " (id %s)", saved.ID)
	}
	fmt.Fprintln(w)
	return nil
}

// --- update ---

// UpdateCmd validates and replaces an existing contact.
type UpdateCmd struct {
	ID     string       `arg:"" help:"Contact ID."`
	Fields ContactFlags `embed:""`
}

type contactUpdater interface {
	Update(ctx context.Context, c contact.Contact) (contact.Contact, error)
}

// Run executes the update command.
func (u *UpdateCmd) Run(g *Globals) error {
	_, log, bk, err := g.setup()
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	defer log.Sync() //nolint:errcheck // best-effort flush on exit

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return u.run(ctx, os.Stdout, bk)
}

func (u *UpdateCmd) run(ctx context.Context, w io.Writer, updater contactUpdater) error {
	res := contact.Validate(u.Fields.form(), contact.ID(u.ID))
	if !res.Valid() {
		return fmt.Errorf("update: %w", &validationError{fields: res.Invalid})
	}
	saved, err := updater.Update(ctx, res.Contact)
	if err != nil {
		if errors.Is(err, book.ErrMissingID) {
			return fmt.Errorf("update: %w", err)
		}
		return &requestError{op: "update", err: err}
	}
	fmt.Fprintf(w, "updated %s (id %s)\n", saved.FullName(), u.ID)
	return nil
}

// --- delete ---

// DeleteCmd removes a contact by ID.
type DeleteCmd struct {
	ID string `arg:"" help:"Contact ID."`
}

type contactDeleter interface {
	Delete(ctx context.Context, id contact.ID) error
}

// Run executes the delete command.
func (d *DeleteCmd) Run(g *Globals) error {
	_, log, bk, err := g.setup()
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	defer log.Sync() //nolint:errcheck // best-effort flush on exit

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return d.run(ctx, os.Stdout, bk)
}

func (d *DeleteCmd) run(ctx context.Context, w io.Writer, deleter contactDeleter) error {
	if err := deleter.Delete(ctx, contact.ID(d.ID)); err != nil {
		if errors.Is(err, book.ErrMissingID) {
			return fmt.Errorf("delete: %w", err)
		}
		return &requestError{op: "delete", err: err}
	}
	fmt.Fprintf(w, "deleted %s\n", d.ID)
	return nil
}

// --- serve ---

// ServeCmd runs the reference backend.
type ServeCmd struct {
	Addr string `help:"Listen address (default :8080)." placeholder:"ADDR"`
	Data string `help:"JSON file to load contacts from and save them to." placeholder:"FILE"`
}

// serveFunc matches server.Serve.
type serveFunc func(ctx context.Context, addr string, h *server.Handler) error

// Run executes the serve command.
func (s *ServeCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer log.Sync() //nolint:errcheck // best-effort flush on exit

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return s.run(ctx, cfg.Server, log, server.Serve)
}

func (s *ServeCmd) run(ctx context.Context, settings config.Server, log *zap.Logger, serve serveFunc) error {
	if s.Addr != "" {
		settings.Addr = s.Addr
	}
	if s.Data != "" {
		settings.DataFile = s.Data
	}

	store := server.NewStore()
	if settings.DataFile != "" {
		var err error
		if store, err = server.OpenStore(settings.DataFile); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}
	log.Info("contacts loaded",
		zap.Int("count", store.Len()),
		zap.String("data_file", settings.DataFile),
	)

	if err := serve(ctx, settings.Addr, server.NewHandler(store, log)); err != nil {
		return &requestError{op: "serve", err: err}
	}
	return nil
}

const (
	exitSuccess = 0
	exitRequest = 1
	exitSetup   = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var re *requestError
	if errors.As(err, &re) {
		return exitRequest
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("addrbook"),
		kong.Description("Browse and edit an address book served over REST."),
		kong.UsageOnError(),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
