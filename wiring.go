package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"realestate/internal/cache"
	"realestate/internal/config"
	"realestate/internal/firebase"
	"realestate/internal/models"
	"realestate/internal/repositories"
	"realestate/internal/services"
	"realestate/pkg/logger"
)

// resources opens backends on first use and closes them in reverse order.
type resources struct {
	cfg *config.Config

	fb      *firebase.App
	db      *gorm.DB
	redis   *redis.Client
	closers []func() error
}

func newResources(cfg *config.Config) *resources {
	return &resources{cfg: cfg}
}

func (r *resources) onClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

// Close releases every opened backend.
func (r *resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *resources) firebaseApp(ctx context.Context) (*firebase.App, error) {
	if r.fb != nil {
		return r.fb, nil
	}
	app, err := firebase.NewApp(ctx, firebase.Config{
		ProjectID:       r.cfg.FirebaseProjectID,
		CredentialsFile: r.cfg.FirebaseCredentialsFile,
	})
	if err != nil {
		return nil, err
	}
	r.fb = app
	r.onClose(app.Close)
	return app, nil
}

// sqlDB opens the relational database for the postgres and sqlite drivers.
func (r *resources) sqlDB() (*gorm.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	var dialector gorm.Dialector
	switch r.cfg.StorageDriver {
	case "postgres":
		dialector = postgres.Open(r.cfg.DatabaseDSN)
	case "sqlite":
		dialector = sqlite.Open(r.cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("storage driver %q has no SQL database", r.cfg.StorageDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.Property{}, &models.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	r.db = db
	r.onClose(sqlDB.Close)
	logger.Log.WithField("driver", r.cfg.StorageDriver).Info("database connected")
	return db, nil
}

func (r *resources) redisClient() *redis.Client {
	if r.redis == nil {
		r.redis = redis.NewClient(&redis.Options{
			Addr:     r.cfg.RedisAddr,
			Password: r.cfg.RedisPassword,
		})
		r.onClose(r.redis.Close)
	}
	return r.redis
}

// propertyRepository selects the listing store named by STORAGE_DRIVER.
func (r *resources) propertyRepository(ctx context.Context) (repositories.PropertyRepository, error) {
	switch r.cfg.StorageDriver {
	case "firestore":
		app, err := r.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		return repositories.NewFirestorePropertyRepository(app.Firestore, r.cfg.PropertiesCollection), nil

	case "postgres", "sqlite":
		db, err := r.sqlDB()
		if err != nil {
			return nil, err
		}
		return repositories.NewGORMPropertyRepository(db), nil

	case "mongo", "mongodb":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(r.cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		r.onClose(func() error { return client.Disconnect(context.Background()) })
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		return repositories.NewMongoPropertyRepository(client.Database(r.cfg.MongoDatabase), r.cfg.PropertiesCollection), nil

	case "memory":
		return repositories.NewInMemoryPropertyRepository(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", r.cfg.StorageDriver)
}

// userRepository keeps administrator accounts next to the listings when the
// store is relational, in memory otherwise.
func (r *resources) userRepository() (repositories.UserRepository, error) {
	switch r.cfg.StorageDriver {
	case "postgres", "sqlite":
		db, err := r.sqlDB()
		if err != nil {
			return nil, err
		}
		return repositories.NewGORMUserRepository(db), nil
	}
	return repositories.NewInMemoryUserRepository(), nil
}

// authenticator selects the identity provider named by AUTH_PROVIDER.
func (r *resources) authenticator(ctx context.Context) (services.Authenticator, error) {
	switch r.cfg.AuthProvider {
	case "firebase":
		app, err := r.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		toolkit, err := services.NewIdentityToolkit(ctx, r.cfg.FirebaseAPIKey)
		if err != nil {
			return nil, err
		}
		return services.NewFirebaseAuthenticator(toolkit, app.Auth), nil

	case "local":
		users, err := r.userRepository()
		if err != nil {
			return nil, err
		}
		local := services.NewLocalAuthenticator(users)
		if r.cfg.AdminEmail != "" && r.cfg.AdminPassword != "" {
			if err := local.EnsureAdmin(ctx, r.cfg.AdminEmail, r.cfg.AdminPassword); err != nil {
				return nil, err
			}
		} else {
			logger.Log.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, no administrator seeded")
		}
		return local, nil
	}
	return nil, fmt.Errorf("unknown auth provider %q", r.cfg.AuthProvider)
}

func (r *resources) sessionStore() (repositories.SessionStore, error) {
	switch r.cfg.SessionStore {
	case "redis":
		return repositories.NewRedisSessionStore(r.redisClient()), nil
	case "memory", "":
		return repositories.NewInMemorySessionStore(), nil
	}
	return nil, fmt.Errorf("unknown session store %q", r.cfg.SessionStore)
}

// searchCache builds the two-tier search cache. With CACHE_DRIVER=none only
// the in-process tier is used.
func (r *resources) searchCache() (*cache.SearchCache, error) {
	var remote cache.Remote
	switch r.cfg.CacheDriver {
	case "redis":
		remote = cache.NewRedisRemote(r.redisClient())
	case "memcached":
		remote = cache.NewMemcachedRemote(r.cfg.MemcachedHost)
	case "none", "":
	default:
		return nil, fmt.Errorf("unknown cache driver %q", r.cfg.CacheDriver)
	}

	c := cache.NewSearchCache(remote, r.cfg.CacheTTL)
	r.onClose(c.Close)
	return c, nil
}
