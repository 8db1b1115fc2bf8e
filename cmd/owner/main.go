// Command owner is a terminal shell for restaurant owners: it logs in, works the
// active order list, confirms pickups and manages time slots against the backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/client"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/config"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/history"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/lifecycle"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/realtime"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/session"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/timeslots"
	"github.com/oficialjosecandido/pickeat-restaurant/pkg/rabbitmq"
)

func main() {
	if err := newApp(config.Load()).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(cfg config.Config) *cli.App {
	return &cli.App{
		Name:  "owner",
		Usage: "manage restaurant orders and pickup time slots",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "backend base URL",
				Value:   cfg.APIBaseURL,
				EnvVars: []string{"API_BASE_URL"},
			},
			&cli.StringFlag{
				Name:  "token-file",
				Usage: "where the session token is kept between runs",
				Value: defaultTokenFile(),
			},
		},
		Before: func(c *cli.Context) error {
			cfg.ConfigureLogging()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "log in and remember the session token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"OWNER_PASSWORD"}},
					&cli.StringFlag{Name: "push-token", Usage: "device push token to register"},
				},
				Action: func(c *cli.Context) error {
					api := client.New(c.String("api"), cfg.RequestTimeout)
					s, err := session.Login(c.Context, api, nil, c.String("email"), c.String("password"),
						session.Options{PushToken: c.String("push-token")})
					if err != nil {
						return err
					}
					if err := saveToken(c.String("token-file"), s.Token()); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Logged in as %s (%s)\n", s.User.Email, s.User.RestaurantName)
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "forget the stored session token",
				Action: func(c *cli.Context) error {
					err := os.Remove(c.String("token-file"))
					if err != nil && !errors.Is(err, os.ErrNotExist) {
						return err
					}
					return nil
				},
			},
			{
				Name:  "orders",
				Usage: "list active orders",
				Action: func(c *cli.Context) error {
					return withSession(c, cfg, nil, session.Options{}, func(s *session.Session) error {
						printOrders(c.App.Writer, s.Orders.Orders())
						return nil
					})
				},
			},
			{
				Name:      "advance",
				Usage:     "move an order to its next status",
				ArgsUsage: "<order id>",
				Action: func(c *cli.Context) error {
					orderID := c.Args().First()
					if orderID == "" {
						return cli.Exit("missing order id", 2)
					}
					opts := session.Options{GraceWindow: cfg.GraceWindow}
					return withSession(c, cfg, nil, opts, func(s *session.Session) error {
						res, err := s.Orders.Advance(c.Context, orderID)
						if err != nil {
							return err
						}
						if res.AwaitingScan {
							fmt.Fprintf(c.App.Writer, "Order %s is ready, scan the customer's code to deliver it\n", orderID)
							return nil
						}
						fmt.Fprintf(c.App.Writer, "Order %s: %s -> %s\n", orderID, res.From, res.To)
						return nil
					})
				},
			},
			{
				Name:      "scan",
				Usage:     "confirm pickup of the order behind a scanned code",
				ArgsUsage: "<code>",
				Action: func(c *cli.Context) error {
					return withSession(c, cfg, nil, session.Options{}, func(s *session.Session) error {
						if err := s.Scanner.Scan(c.Context, c.Args().First()); err != nil {
							return err
						}
						fmt.Fprintln(c.App.Writer, "Order marked as delivered")
						printOrders(c.App.Writer, s.Orders.Orders())
						return nil
					})
				},
			},
			{
				Name:  "history",
				Usage: "show past orders",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "range", Value: string(models.RangeAll), Usage: "all, last3hours, today, week or custom"},
					&cli.TimestampFlag{Name: "from", Layout: "2006-01-02", Usage: "start date for a custom range"},
					&cli.TimestampFlag{Name: "to", Layout: "2006-01-02", Usage: "end date for a custom range"},
				},
				Action: func(c *cli.Context) error {
					f := models.HistoryFilter{
						Range: models.HistoryRange(c.String("range")),
						From:  c.Timestamp("from"),
						To:    c.Timestamp("to"),
					}
					return withSession(c, cfg, nil, session.Options{}, func(s *session.Session) error {
						orders, err := s.FetchHistory(c.Context, f)
						if err != nil {
							return err
						}
						fmt.Fprintln(c.App.Writer, history.Summary(len(orders), f))
						printOrders(c.App.Writer, orders)
						return nil
					})
				},
			},
			{
				Name:  "slots",
				Usage: "generate and save pickup time slots for a date",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Required: true, Usage: "YYYY-MM-DD"},
					&cli.StringFlag{Name: "start", Required: true, Usage: "H:MM"},
					&cli.StringFlag{Name: "start-meridiem", Value: string(models.AM)},
					&cli.StringFlag{Name: "end", Required: true, Usage: "H:MM"},
					&cli.StringFlag{Name: "end-meridiem", Value: string(models.AM)},
					&cli.IntFlag{Name: "duration", Value: 15, Usage: "slot length in minutes"},
					&cli.IntSliceFlag{Name: "skip", Usage: "index of a slot to leave out, repeatable"},
					&cli.BoolFlag{Name: "dry-run", Usage: "print the slots without saving them"},
				},
				Action: func(c *cli.Context) error {
					p := timeslots.Params{
						Date:            c.String("date"),
						StartTime:       c.String("start"),
						StartMeridiem:   models.Meridiem(strings.ToUpper(c.String("start-meridiem"))),
						EndTime:         c.String("end"),
						EndMeridiem:     models.Meridiem(strings.ToUpper(c.String("end-meridiem"))),
						DurationMinutes: c.Int("duration"),
					}
					return withSession(c, cfg, nil, session.Options{}, func(s *session.Session) error {
						return generateSlots(c.Context, c.App.Writer, s.Slots, p, c.IntSlice("skip"), c.Bool("dry-run"))
					})
				},
			},
			{
				Name:  "watch",
				Usage: "follow new orders live until interrupted",
				Action: func(c *cli.Context) error {
					mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.EventsExchange})
					if err != nil {
						return fmt.Errorf("connect to event broker: %w", err)
					}
					defer mq.Close()

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					var current atomic.Pointer[session.Session]
					opts := session.Options{
						GraceWindow: cfg.GraceWindow,
						OnNewOrder: func(ev realtime.Event) {
							fmt.Fprintf(c.App.Writer, "New order %s\n", ev.Number)
							if s := current.Load(); s != nil {
								printOrders(c.App.Writer, s.Orders.Orders())
							}
						},
					}
					return withSession(c, cfg, realtime.NewFeed(mq), opts, func(s *session.Session) error {
						current.Store(s)
						printOrders(c.App.Writer, s.Orders.Orders())
						<-ctx.Done()
						return nil
					})
				},
			},
		},
	}
}

// withSession resumes the stored session, runs fn and closes the session.
func withSession(c *cli.Context, cfg config.Config, feed session.Subscriber, opts session.Options, fn func(*session.Session) error) error {
	token, err := loadToken(c.String("token-file"))
	if err != nil {
		return err
	}
	api := client.New(c.String("api"), cfg.RequestTimeout)

	s, err := session.Resume(c.Context, api, feed, token, opts)
	if err != nil {
		return fmt.Errorf("%w (run `owner login` first)", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.WithError(err).Warn("Closing session failed")
		}
	}()
	return fn(s)
}

func generateSlots(ctx context.Context, w io.Writer, g *timeslots.Generator, p timeslots.Params, skip []int, dryRun bool) error {
	section, err := g.Build(p)
	if err != nil {
		return err
	}
	for _, i := range skip {
		if _, err := g.Toggle(section.Date, section.ID, i); err != nil {
			return err
		}
	}
	if section, err = g.Section(section.Date, section.ID); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s  %s\n", section.Date, section.Range())
	for i, slot := range section.Slots {
		mark := "x"
		if !slot.IsAvailable {
			mark = " "
		}
		fmt.Fprintf(w, "  [%s] %2d  %s\n", mark, i, slot.Time)
	}
	if dryRun {
		return nil
	}

	conf, err := g.Persist(ctx, section.Date, section.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %d slots on %s\n", conf.Message, conf.SlotCount, conf.Date)
	return nil
}

func printOrders(w io.Writer, orders []models.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders")
		return
	}
	for _, o := range orders {
		fmt.Fprintf(w, "%-26s %-10s %-10s %-6s %10s  %s\n",
			o.ID, o.Number, o.EffectiveStatus(), o.TimeSlot,
			models.FormatAmount(o.Currency, o.Total()), o.Customer.FullName())
		if o.IsActive() {
			fmt.Fprintf(w, "%26s next: %s\n", "", lifecycle.Label(o.EffectiveStatus()))
		}
	}
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "pickeat", "token")
}

func loadToken(path string) (string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func saveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}
