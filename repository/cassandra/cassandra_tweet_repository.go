package cassandra

import (
	"context"
	"embed"
	"fmt"
	"log"

	"github.com/gocql/gocql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/cassandra"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.opentelemetry.io/otel/trace"

	"feed/config"
	"feed/model"
	"feed/repository"
)

//go:embed migrations/*.cql
var migrations embed.FS

const globalFeed = "global"

type CassandraTweetRepository struct {
	tracer  trace.Tracer
	session *gocql.Session
}

func NewCassandraTweetRepository(tracer trace.Tracer, cfg config.StoreConfig) (*CassandraTweetRepository, error) {
	host := fmt.Sprintf("%s:%s", cfg.CassandraHost, cfg.CassandraPort)

	err := initKeyspace(host, cfg.Keyspace)
	if err != nil {
		return nil, err
	}

	err = migrateDB(cfg)
	if err != nil {
		return nil, err
	}

	cluster := gocql.NewCluster(host)
	cluster.ProtoVersion = 4
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	log.Printf("Connected OK!")

	return &CassandraTweetRepository{
		tracer:  tracer,
		session: session,
	}, nil
}

func initKeyspace(host string, keyspace string) error {
	cluster := gocql.NewCluster(host)
	cluster.ProtoVersion = 4
	cluster.Consistency = gocql.Quorum

	session, err := cluster.CreateSession()
	if err != nil {
		return err
	}
	defer session.Close()

	return session.Query(fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor' : 1}", keyspace)).Exec()
}

func migrateDB(cfg config.StoreConfig) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}

	connString := fmt.Sprintf("cassandra://%s:%s/%s?x-multi-statement=true", cfg.CassandraHost, cfg.CassandraPort, cfg.Keyspace)
	m, err := migrate.NewWithSourceInstance("iofs", source, connString)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

func (r *CassandraTweetRepository) Close() error {
	r.session.Close()
	return nil
}

func userFeed(userId string) string {
	return model.FeedQuery{AuthorID: userId}.Key()
}

func (r *CassandraTweetRepository) SaveUser(ctx context.Context, user *model.User) error {
	_, span := r.tracer.Start(ctx, "CassandraTweetRepository.SaveUser")
	defer span.End()

	return r.session.Query("INSERT INTO users (id, name, image) VALUES (?, ?, ?)").
		Bind(user.ID, user.Name, user.Image).
		Exec()
}

func (r *CassandraTweetRepository) FindUser(ctx context.Context, userId string) (*model.User, error) {
	_, span := r.tracer.Start(ctx, "CassandraTweetRepository.FindUser")
	defer span.End()

	user := model.User{ID: userId}
	err := r.session.Query("SELECT name, image FROM users WHERE id = ?").
		Bind(userId).Consistency(gocql.One).Scan(&user.Name, &user.Image)
	if err == gocql.ErrNotFound {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *CassandraTweetRepository) SaveTweet(ctx context.Context, tweet *model.Tweet) error {
	_, span := r.tracer.Start(ctx, "CassandraTweetRepository.SaveTweet")
	defer span.End()

	err := r.session.Query("INSERT INTO tweets (id, user_id, content, created_at) VALUES (?, ?, ?, ?)").
		Bind(tweet.ID, tweet.User.ID, tweet.Content, tweet.CreatedAt).
		Exec()
	if err != nil {
		return err
	}

	// one row per feed the tweet belongs to, clustered for paging
	batch := r.session.NewBatch(gocql.LoggedBatch)
	for _, feed := range []string{globalFeed, userFeed(tweet.User.ID)} {
		batch.Query("INSERT INTO tweets_by_feed (feed, created_at, id, user_id, content) VALUES (?, ?, ?, ?, ?)",
			feed, tweet.CreatedAt, tweet.ID, tweet.User.ID, tweet.Content)
	}

	return r.session.ExecuteBatch(batch)
}

func (r *CassandraTweetRepository) FindTweet(ctx context.Context, tweetId string) (*model.Tweet, error) {
	repoCtx, span := r.tracer.Start(ctx, "CassandraTweetRepository.FindTweet")
	defer span.End()

	tweet := model.Tweet{ID: tweetId}
	err := r.session.Query("SELECT user_id, content, created_at FROM tweets WHERE id = ?").
		Bind(tweetId).Consistency(gocql.One).Scan(&tweet.User.ID, &tweet.Content, &tweet.CreatedAt)
	if err == gocql.ErrNotFound {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.decorate(repoCtx, &tweet, model.ViewerID(ctx), map[string]model.User{}); err != nil {
		return nil, err
	}

	return &tweet, nil
}

func (r *CassandraTweetRepository) GetFeedTweets(ctx context.Context, query model.FeedQuery, cursor *model.Cursor, limit int, viewerId string) ([]model.Tweet, error) {
	repoCtx, span := r.tracer.Start(ctx, "CassandraTweetRepository.GetFeedTweets")
	defer span.End()

	var q *gocql.Query
	if cursor == nil {
		q = r.session.Query("SELECT id, user_id, content, created_at FROM tweets_by_feed WHERE feed = ? LIMIT ?").
			Bind(query.Key(), limit)
	} else {
		q = r.session.Query("SELECT id, user_id, content, created_at FROM tweets_by_feed WHERE feed = ? AND (created_at, id) < (?, ?) LIMIT ?").
			Bind(query.Key(), cursor.CreatedAt, cursor.ID, limit)
	}

	tweets := []model.Tweet{}
	var tweet model.Tweet

	iter := q.Iter()
	for iter.Scan(&tweet.ID, &tweet.User.ID, &tweet.Content, &tweet.CreatedAt) {
		tweets = append(tweets, tweet)
		tweet = model.Tweet{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	users := map[string]model.User{}
	for i := range tweets {
		if err := r.decorate(repoCtx, &tweets[i], viewerId, users); err != nil {
			return nil, err
		}
	}

	return tweets, nil
}

// decorate fills in the author and the derived like fields.
func (r *CassandraTweetRepository) decorate(ctx context.Context, tweet *model.Tweet, viewerId string, users map[string]model.User) error {
	tweet.CreatedAt = tweet.CreatedAt.UTC()

	user, ok := users[tweet.User.ID]
	if !ok {
		found, err := r.FindUser(ctx, tweet.User.ID)
		switch {
		case err == repository.ErrNotFound:
			user = model.User{ID: tweet.User.ID}
		case err != nil:
			return err
		default:
			user = *found
		}
		users[user.ID] = user
	}
	tweet.User = user

	count, err := r.CountLikes(ctx, tweet.ID)
	if err != nil {
		return err
	}
	tweet.LikeCount = count

	if viewerId != "" {
		tweet.LikedByMe, err = r.likedBy(ctx, tweet.ID, viewerId)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *CassandraTweetRepository) SaveLike(ctx context.Context, like *model.Like) error {
	_, span := r.tracer.Start(ctx, "CassandraTweetRepository.SaveLike")
	defer span.End()

	applied, err := r.session.Query("INSERT INTO likes (tweet_id, user_id) VALUES (?, ?) IF NOT EXISTS").
		Bind(like.TweetID, like.UserID).
		MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return repository.ErrLikeExists
	}

	return nil
}

func (r *CassandraTweetRepository) DeleteLike(ctx context.Context, like *model.Like) (bool, error) {
	_, span := r.tracer.Start(ctx, "CassandraTweetRepository.DeleteLike")
	defer span.End()

	return r.session.Query("DELETE FROM likes WHERE tweet_id = ? AND user_id = ? IF EXISTS").
		Bind(like.TweetID, like.UserID).
		MapScanCAS(map[string]interface{}{})
}

func (r *CassandraTweetRepository) CountLikes(ctx context.Context, tweetId string) (int, error) {
	_, span := r.tracer.Start(ctx, "CassandraTweetRepository.CountLikes")
	defer span.End()

	var count int64
	err := r.session.Query("SELECT COUNT(*) FROM likes WHERE tweet_id = ?").
		Bind(tweetId).Consistency(gocql.One).Scan(&count)

	return int(count), err
}

func (r *CassandraTweetRepository) likedBy(ctx context.Context, tweetId string, userId string) (bool, error) {
	_, span := r.tracer.Start(ctx, "CassandraTweetRepository.LikedByMe")
	defer span.End()

	var count int64
	err := r.session.Query("SELECT COUNT(*) FROM likes WHERE tweet_id = ? AND user_id = ?").
		Bind(tweetId, userId).Consistency(gocql.One).Scan(&count)

	return count >= 1, err
}

func (r *CassandraTweetRepository) GetProfile(ctx context.Context, userId string) (*model.Profile, error) {
	repoCtx, span := r.tracer.Start(ctx, "CassandraTweetRepository.GetProfile")
	defer span.End()

	user, err := r.FindUser(repoCtx, userId)
	if err != nil {
		return nil, err
	}

	profile := model.Profile{ID: user.ID, Name: user.Name, Image: user.Image}
	counts := []struct {
		query string
		key   string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM followers WHERE followee_id = ?", userId, &profile.FollowersCount},
		{"SELECT COUNT(*) FROM following WHERE follower_id = ?", userId, &profile.FollowingCount},
		{"SELECT COUNT(*) FROM tweets_by_feed WHERE feed = ?", userFeed(userId), &profile.TweetsCount},
	}
	for _, c := range counts {
		var n int64
		if err := r.session.Query(c.query).Bind(c.key).Consistency(gocql.One).Scan(&n); err != nil {
			return nil, err
		}
		*c.dst = int(n)
	}

	return &profile, nil
}

func (r *CassandraTweetRepository) IsFollowing(ctx context.Context, followerId string, followeeId string) (bool, error) {
	_, span := r.tracer.Start(ctx, "CassandraTweetRepository.IsFollowing")
	defer span.End()

	var count int64
	err := r.session.Query("SELECT COUNT(*) FROM followers WHERE followee_id = ? AND follower_id = ?").
		Bind(followeeId, followerId).Consistency(gocql.One).Scan(&count)

	return count >= 1, err
}

func (r *CassandraTweetRepository) SaveFollow(ctx context.Context, follow *model.Follow) error {
	_, span := r.tracer.Start(ctx, "CassandraTweetRepository.SaveFollow")
	defer span.End()

	applied, err := r.session.Query("INSERT INTO followers (followee_id, follower_id) VALUES (?, ?) IF NOT EXISTS").
		Bind(follow.FolloweeID, follow.FollowerID).
		MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return repository.ErrFollowExists
	}

	return r.session.Query("INSERT INTO following (follower_id, followee_id) VALUES (?, ?)").
		Bind(follow.FollowerID, follow.FolloweeID).
		Exec()
}

func (r *CassandraTweetRepository) DeleteFollow(ctx context.Context, follow *model.Follow) (bool, error) {
	_, span := r.tracer.Start(ctx, "CassandraTweetRepository.DeleteFollow")
	defer span.End()

	applied, err := r.session.Query("DELETE FROM followers WHERE followee_id = ? AND follower_id = ? IF EXISTS").
		Bind(follow.FolloweeID, follow.FollowerID).
		MapScanCAS(map[string]interface{}{})
	if err != nil || !applied {
		return false, err
	}

	err = r.session.Query("DELETE FROM following WHERE follower_id = ? AND followee_id = ?").
		Bind(follow.FollowerID, follow.FolloweeID).
		Exec()

	return true, err
}
