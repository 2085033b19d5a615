package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/marcelsud/webhook-tester/config"
	"github.com/marcelsud/webhook-tester/webhook/redis"
)

/* cli - prints the tail of the Redis batch mirror
 * Usage: go run cmd/cli/main.go [-n 10]
 * Uses the same .env / environment settings as the server.
 */

func main() {
	limit := flag.Int64("n", 10, "number of recent batches to show")
	flag.Parse()

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if !cfg.RedisEnabled() {
		fmt.Println("REDIS_ADDR is not set; batches are only written to", cfg.DataDir)
		os.Exit(1)
	}

	ctx := context.Background()
	repo, err := redis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisStreamMaxLen)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer repo.Close(ctx)

	total, err := repo.Len(ctx)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	batches, err := repo.Latest(ctx, *limit)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d batch(es) mirrored, showing %d\n", redis.StreamKey, total, len(batches))
	for _, b := range batches {
		first, last := "-", "-"
		if len(b.Records) > 0 {
			first = b.Records[0].Path
			last = b.Records[len(b.Records)-1].Path
		}
		fmt.Printf("%s  %s  %4d record(s)  %s .. %s\n",
			b.FlushedAt.Format("2006-01-02T15:04:05Z07:00"), b.BatchID, b.Count, first, last)
	}
}
