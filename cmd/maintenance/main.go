// Command maintenance runs one-off jobs against the MongoDB stores.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/domperidog/docshare/internal/config"
	"github.com/domperidog/docshare/internal/database"
	"github.com/domperidog/docshare/internal/document/repository"
	"github.com/domperidog/docshare/internal/models"
	"github.com/domperidog/docshare/internal/users"
	"github.com/domperidog/docshare/pkg/logger"
	"github.com/spf13/pflag"
)

// favoriteStore is the part of the identity store the cleanup walks.
type favoriteStore interface {
	Usernames(ctx context.Context) ([]string, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateFavorites(ctx context.Context, username string, op users.FavoriteOp, documentID string) (*models.User, error)
}

func main() {
	envFile := pflag.String("env-file", ".env", "optional env file loaded before reading the environment")
	ensureIndexes := pflag.Bool("ensure-indexes", false, "create the collection indexes")
	cleanFavorites := pflag.Bool("clean-favorites", false, "remove favorites pointing at deleted documents")
	pflag.Parse()

	if !*ensureIndexes && !*cleanFavorites {
		fmt.Fprintln(os.Stderr, "nothing to do; pass --ensure-indexes and/or --clean-favorites")
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is required")
	}

	ctx := context.Background()
	client, err := database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 3, func(attempt int, err error) {
		logger.Warnf("attempt %d: failed to connect to MongoDB: %v", attempt, err)
	})
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()
	db := client.Database(cfg.MongoDB.Database)

	if *ensureIndexes {
		if err := database.EnsureIndexes(ctx, db); err != nil {
			logger.Fatalf("ensure indexes: %v", err)
		}
		logger.Infof("indexes ensured on %s", cfg.MongoDB.Database)
	}
	if *cleanFavorites {
		userRepo := users.NewMongoUserRepository(db.Collection(database.UsersCollection))
		docRepo := repository.NewMongoRepo(db.Collection(database.DocumentsCollection))
		n, err := cleanDanglingFavorites(ctx, userRepo, docRepo)
		if err != nil {
			logger.Fatalf("clean favorites: %v", err)
		}
		logger.Infof("removed %d dangling favorites", n)
	}
}

// cleanDanglingFavorites drops every favorite id whose document no longer
// exists and returns how many were removed.
func cleanDanglingFavorites(ctx context.Context, us favoriteStore, docs repository.Repository) (int, error) {
	names, err := us.Usernames(ctx)
	if err != nil {
		return 0, err
	}
	exists := map[string]bool{}
	removed := 0
	for _, name := range names {
		u, err := us.FindByUsername(ctx, name)
		if err != nil {
			return removed, err
		}
		if u == nil {
			continue
		}
		for _, id := range u.Favorites {
			ok, seen := exists[id]
			if !seen {
				d, err := docs.FindByID(ctx, id)
				if err != nil {
					return removed, err
				}
				ok = d != nil
				exists[id] = ok
			}
			if ok {
				continue
			}
			if _, err := us.UpdateFavorites(ctx, name, users.FavoriteRemove, id); err != nil {
				return removed, err
			}
			logger.With("user", name, "doc", id).Debugf("dangling favorite removed")
			removed++
		}
	}
	return removed, nil
}
