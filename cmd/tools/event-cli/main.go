package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/mmo-worldcore/internal/eventbus"
	"github.com/annel0/mmo-worldcore/internal/systems"
	nats "github.com/nats-io/nats.go"
)

const (
	timeFormat  = "2006-01-02T15:04:05Z"
	idleTimeout = 2 * time.Second
)

func main() {
	var (
		serverURL  = flag.String("server", nats.DefaultURL, "NATS server URL")
		prefix     = flag.String("prefix", "world.events", "Subject prefix")
		command    = flag.String("cmd", "tail", "Command: tail, stats, types")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		regions    = flag.String("regions", "", "Region IDs filter (comma-separated)")
		since      = flag.String("since", "1h", "Time duration since now (e.g., 1h, 30m) or RFC3339 time")
		limit      = flag.Int("limit", 100, "Maximum number of events (tail without -follow)")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
	)
	flag.Parse()

	if *command == "types" {
		showTypes()
		return
	}

	nc, err := nats.Connect(*serverURL, nats.Name("event-cli"))
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		log.Fatalf("❌ JetStream unavailable: %v", err)
	}

	codec, err := eventbus.NewCodec(0)
	if err != nil {
		log.Fatalf("❌ Codec: %v", err)
	}
	defer codec.Close()

	start, err := parseSinceTime(*since, time.Now())
	if err != nil {
		log.Fatalf("❌ Invalid since time: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := &streamReader{
		js:      js,
		codec:   codec,
		subject: *prefix + ".>",
		start:   start,
		filter: eventFilter{
			types:   parseStringList(*eventTypes),
			regions: parseStringList(*regions),
		},
	}

	switch *command {
	case "tail":
		err = tailEvents(ctx, reader, *limit, *follow)
	case "stats":
		err = showStats(ctx, reader, start)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats, types")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

// eventFilter отбирает события по типу и региону
type eventFilter struct {
	types   []string
	regions []string
}

func (f eventFilter) match(env *eventbus.Envelope, ev *systems.Event) bool {
	return contains(f.types, env.EventType) && contains(f.regions, ev.RegionID)
}

func contains(list []string, v string) bool {
	if len(list) == 0 {
		return true
	}
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// streamReader читает события стрима начиная с момента start упорядоченным потребителем
type streamReader struct {
	js      nats.JetStreamContext
	codec   *eventbus.Codec
	subject string
	start   time.Time
	filter  eventFilter
}

// read вызывает fn для каждого подходящего события; fn возвращает false для остановки.
// Без follow чтение завершается, когда в стриме не осталось сообщений.
func (r *streamReader) read(ctx context.Context, follow bool, fn func(*eventbus.Envelope, *systems.Event) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan *nats.Msg, 256)
	sub, err := r.js.ChanSubscribe(r.subject, msgs, nats.OrderedConsumer(), nats.StartTime(r.start))
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(idleTimeout):
			if !follow {
				return nil // новых сообщений нет
			}
		case msg := <-msgs:
			env, err := r.codec.Decode(msg.Data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  skip %s: %v\n", msg.Subject, err)
				continue
			}
			var ev systems.Event
			_ = json.Unmarshal(env.Payload, &ev)

			if r.filter.match(env, &ev) && !fn(env, &ev) {
				return nil
			}
			if !follow {
				if meta, err := msg.Metadata(); err == nil && meta.NumPending == 0 {
					return nil
				}
			}
		}
	}
}

// tailEvents выводит события
func tailEvents(ctx context.Context, r *streamReader, limit int, follow bool) error {
	fmt.Printf("🎬 Tailing %s since %s (limit: %d, follow: %v)\n", r.subject, r.start.Format(timeFormat), limit, follow)

	count := 0
	err := r.read(ctx, follow, func(env *eventbus.Envelope, ev *systems.Event) bool {
		printEvent(env, ev)
		count++
		return follow || count < limit
	})

	fmt.Printf("\n📊 Total events: %d\n", count)
	return err
}

// showStats выводит количество событий по типам
func showStats(ctx context.Context, r *streamReader, start time.Time) error {
	fmt.Println("📊 Event statistics")

	byType := map[string]int{}
	byRegion := map[string]int{}
	total := 0
	err := r.read(ctx, false, func(env *eventbus.Envelope, ev *systems.Event) bool {
		byType[env.EventType]++
		if ev.RegionID != "" {
			byRegion[ev.RegionID]++
		}
		total++
		return true
	})
	if err != nil {
		return err
	}

	fmt.Printf("Period: %s - %s\n", start.Format(timeFormat), time.Now().UTC().Format(timeFormat))
	fmt.Printf("Total events: %d\n", total)
	printCounts("By event type", byType)
	printCounts("By region", byRegion)
	return nil
}

func printCounts(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("\n%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %s: %d events\n", k, counts[k])
	}
}

// showTypes выводит типы событий мира
func showTypes() {
	fmt.Println("📋 Available event types")
	descriptions := map[systems.EventKind]string{
		systems.EventRegionEntered:    "player moved into another region",
		systems.EventRegionDiscovered: "region discovered for the first time",
		systems.EventPortalTraversed:  "player teleported through a portal",
		systems.EventPackSpawned:      "spawn pass created a pack in a region",
	}
	for _, kind := range []systems.EventKind{
		systems.EventRegionEntered, systems.EventRegionDiscovered,
		systems.EventPortalTraversed, systems.EventPackSpawned,
	} {
		fmt.Printf("Type: %s\n  Description: %s\n", kind, descriptions[kind])
	}
}

// printEvent выводит событие в читаемом формате
func printEvent(env *eventbus.Envelope, ev *systems.Event) {
	fmt.Printf("[%s] %s [%s] %s\n", env.Timestamp.Format("15:04:05"), env.Source, env.EventType, env.ID)

	switch ev.Kind {
	case systems.EventRegionEntered, systems.EventRegionDiscovered:
		fmt.Printf("  Region: %s (%s) Entity: %d\n", ev.RegionID, ev.Biome, ev.EntityID)
	case systems.EventPortalTraversed:
		fmt.Printf("  Portal: %s -> %s at %v\n", ev.RegionID, ev.TargetRegionID, ev.Position)
	case systems.EventPackSpawned:
		fmt.Printf("  Spawn: %d x %s in %s at %v\n", ev.Count, ev.Template, ev.RegionID, ev.Position)
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseSinceTime парсит относительное время типа "1h", "30m" или абсолютное
func parseSinceTime(since string, from time.Time) (time.Time, error) {
	if since == "" {
		return from, nil
	}

	duration, err := time.ParseDuration(since)
	if err != nil {
		return time.Parse(timeFormat, since)
	}

	return from.Add(-duration), nil
}
