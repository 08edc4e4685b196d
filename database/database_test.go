package database_test

import (
	"context"
	"testing"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/database"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name string
}

type MockDBService struct {
	Master *gorm.DB `di:"master"`
	Slave  *gorm.DB `di:"slave,?"`
}

// DBConfig 模拟用户定义的配置结构
type DBConfig struct {
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
}

func TestDatabaseConfiguration(t *testing.T) {
	rt := core.NewRuntime()
	err := rt.Apply(
		core.WithLogger(logging.NewNopLogger()),
		core.WithConfigurationBuilder(func(cb *config.ConfigurationBuilder) {
			cb.AddInMemory(map[string]any{
				"db": map[string]any{
					"master": map[string]any{
						"dsn":            "file:master?mode=memory&cache=shared",
						"max_open_conns": 5,
					},
				},
			})
		}),
		database.New(database.Configure(func(b *database.Builder) {
			dbConf, err := config.Load[DBConfig](b.Configuration(), "db.master")
			if err != nil {
				b.AddError(err)
				return
			}
			b.Add("master", sqlite.Open(dbConf.DSN), func(o *database.Options) {
				o.MaxOpenConns = dbConf.MaxOpenConns
				o.AutoMigrate = []any{&User{}}
			})
		})),
	)
	require.NoError(t, err)

	inj, err := rt.Compile()
	require.NoError(t, err)

	svc, err := di.Get[*MockDBService](inj)
	require.NoError(t, err)
	require.NotNil(t, svc.Master)
	assert.Nil(t, svc.Slave)

	sqlDB, err := svc.Master.DB()
	require.NoError(t, err)
	assert.Equal(t, 5, sqlDB.Stats().MaxOpenConnections)

	assert.True(t, svc.Master.Migrator().HasTable(&User{}))
	require.NoError(t, svc.Master.Create(&User{Name: "ada"}).Error)
	var found User
	require.NoError(t, svc.Master.First(&found, "name = ?", "ada").Error)
	assert.Equal(t, "ada", found.Name)

	again, err := di.GetNamed[*gorm.DB](inj, "master")
	require.NoError(t, err)
	assert.Same(t, svc.Master, again)

	require.NoError(t, rt.Lifecycle.Stop(context.Background(), inj))
}

func TestDefaultDatabaseIsUnqualified(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(
		core.WithLogger(logging.NewNopLogger()),
		database.New(database.WithDatabase(database.DefaultName, sqlite.Open("file:defaultdb?mode=memory&cache=shared"))),
	))
	inj, err := rt.Compile()
	require.NoError(t, err)

	db, err := di.Get[*gorm.DB](inj)
	require.NoError(t, err)
	named, err := di.GetNamed[*gorm.DB](inj, database.DefaultName)
	require.NoError(t, err)
	assert.Same(t, named, db)

	factory := di.MustGet[*database.Factory](inj)
	assert.Equal(t, []string{database.DefaultName}, factory.Names())
	assert.NoError(t, factory.Close())
}

func TestEagerOpenFailureFailsCompile(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(
		core.WithLogger(logging.NewNopLogger()),
		database.New(database.WithDatabase("broken", sqlite.Open("/nonexistent-dir/inject/broken.db"))),
	))
	_, err := rt.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error eagerly initializing")
	assert.Contains(t, err.Error(), "broken")
}

func TestLazyDatabaseOpensOnFirstUse(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(
		core.WithLogger(logging.NewNopLogger()),
		database.New(database.WithDatabase("broken", sqlite.Open("/nonexistent-dir/inject/broken.db"),
			func(o *database.Options) { o.Lazy = true })),
	))
	inj, err := rt.Compile()
	require.NoError(t, err)

	_, err = di.GetNamed[*gorm.DB](inj, "broken")
	assert.ErrorContains(t, err, "failed to open database 'broken'")
}

func TestBuilderErrors(t *testing.T) {
	b := database.NewBuilder(nil)
	b.Add("a", sqlite.Open("file::memory:"), nil)
	b.Add("a", sqlite.Open("file::memory:"), nil)
	b.Add("b", nil, nil)
	b.Add("", sqlite.Open("file::memory:"), nil)

	_, err := b.Build(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already configured")
	assert.Contains(t, err.Error(), "dialector is required")
	assert.Contains(t, err.Error(), "name is required")

	empty, err := database.NewBuilder(nil).Build(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
