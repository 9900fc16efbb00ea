package main

import (
	"context"
	"flag"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/quaerit"
)

// seedDoc is one document to ingest: a source name and its raw text.
type seedDoc struct {
	source string
	text   string
}

var memos = []seedDoc{
	{"memos/q4-review.txt", "Date: January 15, 2025\nAuthor: Alice Chen\nLocation: Berlin, DE\n\n" +
		"Fourth quarter revenue closed at $4.2M, eight percent above plan. Enterprise renewals " +
		"carried the quarter; self-serve was flat. The board wants a churn deep-dive before the " +
		"February offsite."},
	{"memos/harbor-survey.txt", "By: Marcus Webb\n\n" +
		"The 3/14/2025 harbor survey found the north pier pilings in worse shape than the 2019 " +
		"report suggested. Divers logged cracking below the waterline on eleven of forty pilings. " +
		"Recommend closing berths 4 through 7 until the engineering review."},
	{"memos/greenhouse.txt", "Date: 2025-04-02\nAuthor: Priya Natarajan\n\n" +
		"The greenhouse sensors went quiet overnight. Humidity logging resumed after the gateway " +
		"reboot, but we lost six hours of data. The tomato rows look fine; the orchids are " +
		"sulking. Ordering a second gateway as a warm spare."},
	{"memos/lighthouse.txt", "Author: Tom Okafor\nLocation: Portland, OR\n\n" +
		"The lighthouse lens arrived in seventeen crates, each labeled in French. Assembly notes " +
		"reference a manual nobody has seen since 1954. The historical society promises a scan " +
		"by Friday. Optimism is high, clearance is low."},
	{"memos/migration.txt", "The database migration finished two hours early. Nobody believes " +
		"the runbook timing anymore. Read replicas caught up by noon and the old primary is " +
		"parked in read-only mode for a week, just in case."},
	{"memos/expedition.txt", "Date: June 30, 2025\nBy: Ingrid Halvorsen\n\n" +
		"Base camp established at 3,100 meters. The glacier moved faster this year than any " +
		"season on record, and the old route is gone. We mapped a new approach along the eastern " +
		"moraine. Morale is excellent; the coffee is not."},
	{"memos/archive.txt", "Author: Rosa Delgado\nLocation: Santa Fe, NM\n\n" +
		"The basement archive flooded again. Most boxes were on pallets, but the 1988 " +
		"correspondence got wet. Freeze-drying starts Monday. We need a dehumidifier budget " +
		"line or a new basement."},
	{"memos/kitchen.txt", "The pop-up kitchen in Austin, TX sold out in forty minutes. The " +
		"brisket queue formed before the permits were even posted. Next stop scheduled for " +
		"8/22/2025, pending a generator that does not sulk in the heat."},
	{"memos/observatory.txt", "Date: November 3, 2024\nAuthor: Dr. Lena Moreau\n\n" +
		"The new spectrograph resolved the binary at last. Two clean signatures, fourteen-day " +
		"period, exactly where the 2021 models put it. Telescope time next quarter goes to the " +
		"survey team; we get December."},
	{"memos/ferry.txt", "By: Sam Whitfield\nLocation: Juneau, AK\n\n" +
		"The ferry schedule change strands the Tuesday freight run. Worked out an alternate " +
		"with the barge operator: heavier loads, fewer trips. Winter tires for the forklift " +
		"are on order. Again."},
	{"memos/orchard.txt", "Date: 2024-09-18\nAuthor: June Park\n\n" +
		"The orchard trial rows outperformed the control by a wide margin. Rootstock B held " +
		"fruit through the windstorm; rootstock A dropped a third. Next season we graft the " +
		"whole east slope onto B and keep two control rows for honesty."},
	{"memos/server-room.txt", "The server room developed opinions about the backup schedule. " +
		"Thursday's full backup now starts at 2 AM after the cooling fans voted against 6 PM. " +
		"Nobody has told the UPS, which still beeps at shift change out of habit."},
}

var (
	dbPath = flag.String("db", "./corpus_db", "path to the corpus database")
	srcDir = flag.String("src", "", "directory of .txt files to seed from")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// docsFromDir returns an iterator over the .txt files in a directory.
func docsFromDir(dir string) (iter.Seq[seedDoc], error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	return func(yield func(seedDoc) bool) {
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("skipping unreadable file", "path", path, "err", err)
				continue
			}
			if !yield(seedDoc{source: path, text: string(data)}) {
				return
			}
		}
	}, nil
}

// docsFromSlice returns an iterator over built-in sample documents.
func docsFromSlice(docs []seedDoc) iter.Seq[seedDoc] {
	return func(yield func(seedDoc) bool) {
		for _, doc := range docs {
			if !yield(doc) {
				return
			}
		}
	}
}

// seed ingests every document from the source and reports how many landed.
func seed(ctx context.Context, engine *quaerit.Engine, source iter.Seq[seedDoc]) (int, error) {
	seeded := 0
	for doc := range source {
		if _, err := engine.IndexDocument(ctx, doc.source, doc.text); err != nil {
			return seeded, err
		}
		seeded++
	}
	return seeded, nil
}

func main() {
	engine, err := quaerit.Open(*dbPath)
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	ctx := context.Background()

	// Determine source of seed data
	var source iter.Seq[seedDoc]
	if *srcDir != "" {
		source, err = docsFromDir(*srcDir)
		if err != nil {
			panic(err)
		}
	} else {
		source = docsFromSlice(memos)
	}

	seeded, err := seed(ctx, engine, source)
	if err != nil {
		panic(err)
	}
	slog.Info("seeded corpus", "documents", seeded)
}
