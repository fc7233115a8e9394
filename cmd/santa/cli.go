package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/santa/internal/board"
	"github.com/hpungsan/santa/internal/config"
	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/geoip"
	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/remote"
	"github.com/hpungsan/santa/internal/store"
	"github.com/hpungsan/santa/internal/web"
	"github.com/hpungsan/santa/internal/wish"
)

// runtime carries what the commands share. The store is opened on first use.
type runtime struct {
	baseDir string
	cfg     *config.Config
	log     zerolog.Logger

	in     *bufio.Reader
	out    io.Writer // JSON results
	errOut io.Writer // prompts and progress

	store    store.Store
	resolver *geoip.Resolver
}

func newRuntime(baseDir string, cfg *config.Config, log zerolog.Logger) *runtime {
	return &runtime{
		baseDir: baseDir,
		cfg:     cfg,
		log:     log,
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		errOut:  os.Stderr,
	}
}

// Close releases the store and the GeoIP database.
func (rt *runtime) Close() {
	if rt.store != nil {
		_ = rt.store.Close()
		rt.store = nil
	}
	if rt.resolver != nil {
		_ = rt.resolver.Close()
		rt.resolver = nil
	}
}

func (rt *runtime) openStore(ctx context.Context) (store.Store, error) {
	if rt.store != nil {
		return rt.store, nil
	}
	s, err := store.Open(ctx, rt.cfg, rt.baseDir)
	if err != nil {
		return nil, err
	}
	rt.store = s
	return s, nil
}

func (rt *runtime) countryResolver() geoip.CountryResolver {
	if rt.resolver == nil && rt.cfg.GeoIPDBPath != "" {
		r, err := geoip.NewResolver(rt.cfg.GeoIPDBPath)
		if err != nil {
			rt.log.Warn().Err(err).Msg("geoip disabled")
			return nil
		}
		rt.resolver = r
	}
	if rt.resolver == nil {
		return nil
	}
	return rt.resolver
}

// remoteURL is the --remote flag, or the configured remote store.
func (rt *runtime) remoteURL(c *cli.Context) string {
	if u := c.String("remote"); u != "" {
		return u
	}
	if rt.cfg.Store == config.StoreRemote {
		return rt.cfg.RemoteURL
	}
	return ""
}

// backend returns the wish store the components talk to: a remote API
// when one is configured, the local store otherwise.
func (rt *runtime) backend(c *cli.Context) (board.Backend, error) {
	if u := rt.remoteURL(c); u != "" {
		client, err := remote.NewClient(remote.Options{BaseURL: u, AdminPassword: rt.cfg.AdminPassword})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	s, err := rt.openStore(c.Context)
	if err != nil {
		return nil, err
	}
	local := ops.NewLocal(s, !rt.cfg.OptionalCategory)
	local.Resolver = rt.countryResolver()
	local.Logger = rt.log
	return local, nil
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *runtime) *cli.App {
	app := &cli.App{
		Name:    "santa",
		Usage:   "Anonymous Secret Santa wish board",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "remote", Usage: "Base URL of a santa API, e.g. http://host:8080/api"},
		},
		Commands: []*cli.Command{
			serveCmd(rt),
			wishCmd(rt),
			wishesCmd(rt),
			claimCmd(rt),
			feedCmd(rt),
			popupsCmd(rt),
			visitCmd(rt),
			adminCmd(rt),
		},
		Writer:    rt.out,
		ErrWriter: rt.errOut,
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web board and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default from config)"},
		},
		Action: func(c *cli.Context) error {
			if rt.remoteURL(c) != "" {
				return outputError(errors.NewInvalidRequest("serve needs a local store; unset --remote and store=remote"))
			}
			s, err := rt.openStore(c.Context)
			if err != nil {
				return outputError(err)
			}

			h, err := web.NewHandlers(web.Options{
				Store:    s,
				Config:   rt.cfg,
				Resolver: rt.countryResolver(),
				Logger:   rt.log,
				Version:  Version,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			bind := rt.cfg.Bind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := rt.cfg.Port
			if c.IsSet("port") {
				port = c.Int("port")
			}

			return web.Run(web.NewServer(web.NewRouter(h), bind, port), h, rt.log)
		},
	}
}

// wishCmd creates the wish command.
func wishCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "wish",
		Usage: "Write a wish (asks for missing fields, then for confirmation)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "wish", Aliases: []string{"w"}, Usage: "What you wish for"},
			&cli.StringFlag{Name: "country", Aliases: []string{"c"}, Usage: "Your country"},
			&cli.StringFlag{Name: "telegram", Aliases: []string{"t"}, Usage: "Your Telegram handle (@name)"},
			&cli.StringFlag{Name: "category", Usage: "material|help|communication|experience"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation step"},
		},
		Action: func(c *cli.Context) error {
			b, err := rt.backend(c)
			if err != nil {
				return outputError(err)
			}

			draft := wish.Draft{
				Wish:     rt.valueOrPrompt(c, "wish", "Your wish"),
				Country:  rt.valueOrPrompt(c, "country", "Country"),
				Telegram: rt.valueOrPrompt(c, "telegram", "Telegram (@name)"),
				Category: wish.Category(rt.valueOrPrompt(c, "category", "Category (material/help/communication/experience)")),
			}

			composer := board.NewComposer(b, board.ComposerOptions{
				ChannelURL:      rt.cfg.ChannelURL,
				RequireCategory: !rt.cfg.OptionalCategory,
				Effects: board.EffectFuncs{
					OnCelebrate: func(string) { fmt.Fprintln(rt.errOut, "🎉 Your wish is on its way to Santa!") },
				},
				Logger: rt.log,
			})

			pending, err := composer.Submit(draft)
			if err != nil {
				return outputError(err)
			}

			if pending.ChannelURL != "" {
				fmt.Fprintf(rt.errOut, "Subscribe to our channel: %s\n", pending.ChannelURL)
			}
			ok, err := rt.confirm(c, "Send your wish?")
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if !ok {
				pending.Cancel()
				fmt.Fprintln(rt.errOut, "Cancelled, nothing was sent.")
				return nil
			}

			w, err := pending.Confirm(c.Context)
			if err != nil {
				return outputError(err)
			}
			return rt.outputJSON(w)
		},
	}
}

// wishesCmd creates the wishes command.
func wishesCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "wishes",
		Usage: "Browse wishes, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Value: wish.CategoryAll, Usage: "all|material|help|communication|experience"},
			&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
		},
		Action: func(c *cli.Context) error {
			browser, err := rt.browser(c)
			if err != nil {
				return outputError(err)
			}
			if err := browser.SetCategory(c.String("category")); err != nil {
				return outputError(err)
			}
			if err := browser.Refresh(c.Context); err != nil {
				return outputError(err)
			}
			browser.SetPage(c.Int("page"))
			return rt.outputJSON(browser.View())
		},
	}
}

// claimCmd creates the claim command.
func claimCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "claim",
		Usage:     "Become the Secret Santa of a wish and reveal its contact",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := parseID(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			browser, err := rt.browser(c)
			if err != nil {
				return outputError(err)
			}
			if err := browser.Refresh(c.Context); err != nil {
				return outputError(err)
			}
			dialog, err := browser.Open(id)
			if err != nil {
				return outputError(err)
			}
			defer dialog.Close()

			handle, err := dialog.Reveal(c.Context)
			if err != nil {
				return outputError(err)
			}
			return rt.outputJSON(map[string]any{
				"wish":     dialog.Summary(),
				"telegram": handle,
			})
		},
	}
}

func (rt *runtime) browser(c *cli.Context) (*board.Browser, error) {
	b, err := rt.backend(c)
	if err != nil {
		return nil, err
	}
	return board.NewBrowser(b, board.BrowserOptions{
		PageSize: rt.cfg.PageSize,
		Interval: rt.cfg.BrowserPoll(),
		Effects: board.EffectFuncs{
			OnCelebrate: func(string) { fmt.Fprintln(rt.errOut, "🎅 Thank you, Secret Santa!") },
		},
		Logger: rt.log,
	}), nil
}

// feedCmd creates the feed command.
func feedCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Show recent activity and wish counts",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Number of activities (default from config)"},
			&cli.BoolFlag{Name: "follow", Aliases: []string{"f"}, Usage: "Keep polling and print new activity"},
		},
		Action: func(c *cli.Context) error {
			b, err := rt.backend(c)
			if err != nil {
				return outputError(err)
			}
			limit := rt.cfg.FeedLimit
			if c.IsSet("limit") {
				limit = c.Int("limit")
			}
			feed := board.NewFeedReader(b, board.FeedOptions{Limit: limit, Interval: rt.cfg.FeedPoll(), Logger: rt.log})

			if !c.Bool("follow") {
				if err := feed.Refresh(c.Context); err != nil {
					return outputError(errors.NewUnavailable(err))
				}
				return rt.outputJSON(feed.Snapshot())
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			seen := make(map[int64]bool)
			board.Poll(ctx, rt.cfg.FeedPoll(), func(ctx context.Context) {
				if err := feed.Refresh(ctx); err != nil {
					return
				}
				rt.printNewActivities(feed.Snapshot(), seen)
			})
			return nil
		},
	}
}

// printNewActivities prints activities not printed before, oldest first.
func (rt *runtime) printNewActivities(snap board.FeedSnapshot, seen map[int64]bool) {
	for i := len(snap.Activities) - 1; i >= 0; i-- {
		a := snap.Activities[i]
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		fmt.Fprintf(rt.out, "%-12s %s\n", a.Ago, a.Message)
	}
}

// popupsCmd creates the popups command.
func popupsCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "popups",
		Usage: "Show new activity as notifications, one at a time",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Print what is queued now and exit"},
		},
		Action: func(c *cli.Context) error {
			b, err := rt.backend(c)
			if err != nil {
				return outputError(err)
			}
			popup := board.NewPopup(b, board.PopupOptions{
				Limit:        rt.cfg.FeedLimit,
				PollInterval: rt.cfg.PopupPoll(),
				Visible:      rt.cfg.PopupVisible(),
				Fade:         rt.cfg.PopupFade(),
				Logger:       rt.log,
			})

			if c.Bool("once") {
				if err := popup.Fetch(c.Context); err != nil {
					return outputError(errors.NewUnavailable(err))
				}
				for {
					e, ok := popup.Next()
					if !ok {
						return nil
					}
					fmt.Fprintf(rt.out, "🔔 %s\n", ops.ActivityMessage(e))
				}
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			popup.Run(ctx, func(n board.Notice) {
				if n.Phase == board.PhaseVisible {
					fmt.Fprintf(rt.out, "🔔 %s\n", n.Message)
				}
			})
			return nil
		},
	}
}

// visitCmd creates the visit command.
func visitCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "visit",
		Usage: "Report a visit with this machine's visitor ID",
		Action: func(c *cli.Context) error {
			b, err := rt.backend(c)
			if err != nil {
				return outputError(err)
			}
			tracker := board.NewTracker(b, board.NewFileIDStore(rt.baseDir), rt.log)
			id := tracker.Report(c.Context)

			out := map[string]any{"visitor_id": id}
			if n, err := b.VisitorCount(c.Context); err == nil {
				out["visitors"] = n
			}
			return rt.outputJSON(out)
		},
	}
}

// adminCmd creates the admin command group.
func adminCmd(rt *runtime) *cli.Command {
	authFlags := []cli.Flag{
		&cli.StringFlag{Name: "password", Usage: "Admin password (prompted when needed)"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation step"},
	}
	return &cli.Command{
		Name:  "admin",
		Usage: "Moderate wishes",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List every wish with the visitor count",
				Flags: authFlags,
				Action: func(c *cli.Context) error {
					panel, err := rt.panel(c, true)
					if err != nil {
						return outputError(err)
					}
					return rt.outputJSON(panel.State())
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete one wish",
				ArgsUsage: "<id>",
				Flags:     authFlags,
				Action: func(c *cli.Context) error {
					id, err := parseID(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					panel, err := rt.panel(c, true)
					if err != nil {
						return outputError(err)
					}
					conf, err := panel.RequestDelete(id)
					if err != nil {
						return outputError(err)
					}
					return rt.confirmDelete(c, conf)
				},
			},
			{
				Name:      "bulk-delete",
				Usage:     "Delete several wishes",
				ArgsUsage: "<id> [id...]",
				Flags:     authFlags,
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputError(errors.NewInvalidRequest("at least one id is required"))
					}
					panel, err := rt.panel(c, true)
					if err != nil {
						return outputError(err)
					}
					panel.DeselectAll()
					for _, arg := range c.Args().Slice() {
						id, err := parseID(arg)
						if err != nil {
							return outputError(err)
						}
						if err := panel.Toggle(id); err != nil {
							return outputError(err)
						}
					}
					conf, err := panel.RequestBulkDelete()
					if err != nil {
						return outputError(err)
					}
					return rt.confirmDelete(c, conf)
				},
			},
			{
				Name:  "logout",
				Usage: "Forget the saved admin session",
				Action: func(c *cli.Context) error {
					panel, err := rt.panel(c, false)
					if err != nil {
						return outputError(err)
					}
					if err := panel.Logout(); err != nil {
						return outputError(errors.NewInternal(err))
					}
					return rt.outputJSON(map[string]bool{"logged_out": true})
				},
			},
		},
	}
}

// panel opens the moderation panel. With login set, a saved session is
// restored or the password is checked.
func (rt *runtime) panel(c *cli.Context, login bool) (*board.Panel, error) {
	b, err := rt.backend(c)
	if err != nil {
		return nil, err
	}
	panel := board.NewPanel(b, board.PanelOptions{
		Password: rt.cfg.AdminPassword,
		Session:  board.NewFileSession(rt.baseDir),
		Logger:   rt.log,
	})
	if !login {
		return panel, nil
	}

	if err := panel.Restore(c.Context); err != nil {
		return nil, err
	}
	if panel.Authenticated() {
		return panel, nil
	}

	password := c.String("password")
	if password == "" {
		password = rt.prompt("Admin password")
	}
	if err := panel.Login(c.Context, password); err != nil {
		return nil, err
	}
	return panel, nil
}

func (rt *runtime) confirmDelete(c *cli.Context, conf *board.Confirmation) error {
	ok, err := rt.confirm(c, conf.Prompt())
	if err != nil {
		return outputError(errors.NewInternal(err))
	}
	if !ok {
		conf.Cancel()
		fmt.Fprintln(rt.errOut, "Cancelled, nothing was deleted.")
		return nil
	}

	report, err := conf.Confirm(c.Context)
	if report != nil {
		if jsonErr := rt.outputJSON(report); jsonErr != nil {
			return jsonErr
		}
	}
	if err != nil {
		return outputError(err)
	}
	return nil
}

// Helper functions

// valueOrPrompt returns the flag value, asking for it when unset.
func (rt *runtime) valueOrPrompt(c *cli.Context, flag, label string) string {
	if c.IsSet(flag) {
		return c.String(flag)
	}
	return rt.prompt(label)
}

// prompt asks for one line of input.
func (rt *runtime) prompt(label string) string {
	fmt.Fprintf(rt.errOut, "%s: ", label)
	line, _ := rt.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// confirm asks a yes/no question; --yes answers it up front.
func (rt *runtime) confirm(c *cli.Context, question string) (bool, error) {
	if c.Bool("yes") {
		return true, nil
	}
	fmt.Fprintf(rt.errOut, "%s [y/N]: ", question)
	line, err := rt.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// outputJSON marshals result to stdout as JSON.
func (rt *runtime) outputJSON(v any) error {
	enc := json.NewEncoder(rt.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	se := errors.As(err)
	if se.Code == errors.ErrInternal {
		return cli.Exit(err.Error(), 1)
	}
	return cli.Exit(fmt.Sprintf("[%s] %s", se.Code, se.Message), 1)
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, errors.NewInvalidRequest("wish id is required")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid wish id %q", s))
	}
	return id, nil
}
