// Command feedcli scrolls a feed over gRPC the way a client view does:
// pages are appended to a local cache until the feed is exhausted, and a
// like toggle is reconciled into every cached copy of the tweet.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"
	"go.opentelemetry.io/otel"

	"feed/circuit_breaker"
	"feed/client"
	"feed/config"
	"feed/model"
	"feed/rpc"
	"feed/tls"
)

func main() {
	addr := flag.String("addr", "localhost:9001", "feed service gRPC address")
	token := flag.String("token", os.Getenv("FEED_TOKEN"), "JWT sent as the authorization metadata")
	author := flag.String("author", "", "scroll this user's tweets instead of the global feed")
	limit := flag.Int("limit", 10, "page size to request")
	pages := flag.Int("pages", 0, "stop after this many pages (0 scrolls to the end)")
	like := flag.String("like", "", "toggle the like on this tweet after scrolling")
	profile := flag.Bool("profile", false, "print the author's profile first (requires --author)")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	tlsCfg := config.TLSConfig{}
	flag.StringVar(&tlsCfg.CACertFile, "ca-cert", "", "CA certificate; enables TLS")
	flag.StringVar(&tlsCfg.CertFile, "cert", "", "client certificate for mutual TLS")
	flag.StringVar(&tlsCfg.KeyFile, "key", "", "client key for mutual TLS")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := tls.GetgRPCConnection(ctx, *addr, tlsCfg)
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()

	api := circuit_breaker.NewFeedCircuitBreaker(otel.Tracer("feedcli"), rpc.NewTweetServiceClient(conn), *token)
	query := model.FeedQuery{AuthorID: *author}

	if *profile && *author != "" {
		p, err := api.GetProfile(ctx, *author)
		if err != nil {
			log.Fatalf("get profile: %v", err)
		}
		fmt.Printf("%s (%s): %d tweets, %d followers, %d following, following=%v\n\n",
			p.Name, p.ID, p.TweetsCount, p.FollowersCount, p.FollowingCount, p.IsFollowing)
	}

	cache := client.NewFeedCache()
	driver := client.NewScrollDriver(api, cache, query, *limit)
	defer driver.Close()

	for fetched := 0; *pages == 0 || fetched < *pages; fetched++ {
		if _, err := driver.NearEnd(ctx); err != nil {
			log.Fatalf("fetch page %d: %v", fetched+1, err)
		}
		if driver.State() == client.Exhausted {
			break
		}
	}

	if *like != "" {
		result, err := client.NewLikeToggler(api, cache).Toggle(ctx, *like)
		if err != nil {
			log.Fatalf("toggle like: %v", err)
		}
		fmt.Printf("like on %s: added=%v\n\n", *like, result.Added)
	}

	tweets := cache.Tweets(driver.Query())
	printTweets(tweets)
	fmt.Printf("\n%d tweets, %s\n", len(tweets), driver.State())
}

func printTweets(tweets []model.Tweet) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAUTHOR\tCREATED\tLIKES\tLIKED\tCONTENT")
	for _, t := range tweets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%v\t%s\n",
			t.ID, t.User.ID, t.CreatedAt.Format(time.RFC3339), t.LikeCount, t.LikedByMe, t.Content)
	}
	_ = w.Flush()
}
