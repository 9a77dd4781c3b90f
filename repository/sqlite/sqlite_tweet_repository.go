package sqlite

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"feed/model"
	"feed/repository"
)

type SQLiteTweetRepository struct {
	tracer trace.Tracer
	pool   *sqlitex.Pool
}

func NewSQLiteTweetRepository(tracer trace.Tracer, path string, poolSize int) (*SQLiteTweetRepository, error) {
	pool, err := openPool(path, poolSize)
	if err != nil {
		return nil, err
	}

	return &SQLiteTweetRepository{
		tracer: tracer,
		pool:   pool,
	}, nil
}

func (r *SQLiteTweetRepository) Close() error {
	return r.pool.Close()
}

func (r *SQLiteTweetRepository) withConn(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	return fn(conn)
}

func (r *SQLiteTweetRepository) SaveUser(ctx context.Context, user *model.User) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.SaveUser")
	defer span.End()

	return r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`INSERT INTO users (id, name, image) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name, image = excluded.image`,
			&sqlitex.ExecOptions{Args: []any{user.ID, user.Name, user.Image}})
	})
}

func (r *SQLiteTweetRepository) FindUser(ctx context.Context, userId string) (*model.User, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.FindUser")
	defer span.End()

	var user *model.User
	err := r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT id, name, image FROM users WHERE id = ?", &sqlitex.ExecOptions{
			Args: []any{userId},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				user = &model.User{
					ID:    stmt.ColumnText(0),
					Name:  stmt.ColumnText(1),
					Image: stmt.ColumnText(2),
				}
				return nil
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, repository.ErrNotFound
	}

	return user, nil
}

func (r *SQLiteTweetRepository) SaveTweet(ctx context.Context, tweet *model.Tweet) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.SaveTweet")
	defer span.End()

	return r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"INSERT INTO tweets (id, user_id, content, created_at) VALUES (?, ?, ?, ?)",
			&sqlitex.ExecOptions{Args: []any{tweet.ID, tweet.User.ID, tweet.Content, tweet.CreatedAt.UnixMilli()}})
	})
}

const tweetColumns = `t.id, t.content, t.created_at, t.user_id, COALESCE(u.name, ''), COALESCE(u.image, ''),
	(SELECT COUNT(*) FROM likes l WHERE l.tweet_id = t.id),
	EXISTS (SELECT 1 FROM likes l WHERE l.tweet_id = t.id AND l.user_id = ?)`

func scanTweet(stmt *sqlite.Stmt) model.Tweet {
	return model.Tweet{
		ID:        stmt.ColumnText(0),
		Content:   stmt.ColumnText(1),
		CreatedAt: time.UnixMilli(stmt.ColumnInt64(2)).UTC(),
		User: model.User{
			ID:    stmt.ColumnText(3),
			Name:  stmt.ColumnText(4),
			Image: stmt.ColumnText(5),
		},
		LikeCount: stmt.ColumnInt(6),
		LikedByMe: stmt.ColumnInt64(7) != 0,
	}
}

func (r *SQLiteTweetRepository) FindTweet(ctx context.Context, tweetId string) (*model.Tweet, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.FindTweet")
	defer span.End()

	var tweet *model.Tweet
	err := r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT "+tweetColumns+" FROM tweets t LEFT JOIN users u ON u.id = t.user_id WHERE t.id = ?",
			&sqlitex.ExecOptions{
				Args: []any{model.ViewerID(ctx), tweetId},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					t := scanTweet(stmt)
					tweet = &t
					return nil
				},
			})
	})
	if err != nil {
		return nil, err
	}
	if tweet == nil {
		return nil, repository.ErrNotFound
	}

	return tweet, nil
}

func (r *SQLiteTweetRepository) GetFeedTweets(ctx context.Context, query model.FeedQuery, cursor *model.Cursor, limit int, viewerId string) ([]model.Tweet, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.GetFeedTweets")
	defer span.End()

	var sb strings.Builder
	sb.WriteString("SELECT " + tweetColumns + " FROM tweets t LEFT JOIN users u ON u.id = t.user_id")
	args := []any{viewerId}

	var where []string
	if query.AuthorID != "" {
		where = append(where, "t.user_id = ?")
		args = append(args, query.AuthorID)
	}
	if cursor != nil {
		ms := cursor.CreatedAt.UnixMilli()
		where = append(where, "(t.created_at < ? OR (t.created_at = ? AND t.id < ?))")
		args = append(args, ms, ms, cursor.ID)
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY t.created_at DESC, t.id DESC LIMIT ?")
	args = append(args, int64(limit))

	tweets := []model.Tweet{}
	err := r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, sb.String(), &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				tweets = append(tweets, scanTweet(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return tweets, nil
}

func (r *SQLiteTweetRepository) SaveLike(ctx context.Context, like *model.Like) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.SaveLike")
	defer span.End()

	return r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			"INSERT INTO likes (user_id, tweet_id) VALUES (?, ?) ON CONFLICT (user_id, tweet_id) DO NOTHING",
			&sqlitex.ExecOptions{Args: []any{like.UserID, like.TweetID}})
		if err != nil {
			return err
		}
		if conn.Changes() == 0 {
			return repository.ErrLikeExists
		}
		return nil
	})
}

func (r *SQLiteTweetRepository) DeleteLike(ctx context.Context, like *model.Like) (bool, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.DeleteLike")
	defer span.End()

	var deleted bool
	err := r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, "DELETE FROM likes WHERE user_id = ? AND tweet_id = ?",
			&sqlitex.ExecOptions{Args: []any{like.UserID, like.TweetID}})
		if err != nil {
			return err
		}
		deleted = conn.Changes() > 0
		return nil
	})

	return deleted, err
}

func (r *SQLiteTweetRepository) CountLikes(ctx context.Context, tweetId string) (int, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.CountLikes")
	defer span.End()

	var count int
	err := r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT COUNT(*) FROM likes WHERE tweet_id = ?", &sqlitex.ExecOptions{
			Args: []any{tweetId},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt(0)
				return nil
			},
		})
	})

	return count, err
}

func (r *SQLiteTweetRepository) GetProfile(ctx context.Context, userId string) (*model.Profile, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.GetProfile")
	defer span.End()

	var profile *model.Profile
	err := r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT u.id, u.name, u.image,
				(SELECT COUNT(*) FROM follows f WHERE f.followee_id = u.id),
				(SELECT COUNT(*) FROM follows f WHERE f.follower_id = u.id),
				(SELECT COUNT(*) FROM tweets t WHERE t.user_id = u.id)
			FROM users u WHERE u.id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{userId},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					profile = &model.Profile{
						ID:             stmt.ColumnText(0),
						Name:           stmt.ColumnText(1),
						Image:          stmt.ColumnText(2),
						FollowersCount: stmt.ColumnInt(3),
						FollowingCount: stmt.ColumnInt(4),
						TweetsCount:    stmt.ColumnInt(5),
					}
					return nil
				},
			})
	})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, repository.ErrNotFound
	}

	return profile, nil
}

func (r *SQLiteTweetRepository) IsFollowing(ctx context.Context, followerId string, followeeId string) (bool, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.IsFollowing")
	defer span.End()

	var following bool
	err := r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT 1 FROM follows WHERE follower_id = ? AND followee_id = ?", &sqlitex.ExecOptions{
			Args: []any{followerId, followeeId},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				following = true
				return nil
			},
		})
	})

	return following, err
}

func (r *SQLiteTweetRepository) SaveFollow(ctx context.Context, follow *model.Follow) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.SaveFollow")
	defer span.End()

	return r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			"INSERT INTO follows (follower_id, followee_id) VALUES (?, ?) ON CONFLICT (follower_id, followee_id) DO NOTHING",
			&sqlitex.ExecOptions{Args: []any{follow.FollowerID, follow.FolloweeID}})
		if err != nil {
			return err
		}
		if conn.Changes() == 0 {
			return repository.ErrFollowExists
		}
		return nil
	})
}

func (r *SQLiteTweetRepository) DeleteFollow(ctx context.Context, follow *model.Follow) (bool, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteTweetRepository.DeleteFollow")
	defer span.End()

	var deleted bool
	err := r.withConn(repoCtx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, "DELETE FROM follows WHERE follower_id = ? AND followee_id = ?",
			&sqlitex.ExecOptions{Args: []any{follow.FollowerID, follow.FolloweeID}})
		if err != nil {
			return err
		}
		deleted = conn.Changes() > 0
		return nil
	})

	return deleted, err
}
