package etcd_test

import (
	"context"
	"testing"
	"time"

	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/etcd"
	"github.com/gocrud/inject/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// MockService 模拟依赖 Etcd 客户端的服务
type MockService struct {
	Master *clientv3.Client `di:"master"`
	Slave  *clientv3.Client `di:"slave,?"`
}

func TestEtcdConfiguration(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(
		core.WithLogger(logging.NewNopLogger()),
		etcd.New(etcd.WithClient("master", func(o *etcd.EtcdClientOptions) {
			o.Endpoints = []string{"localhost:2379"}
			o.DialTimeout = time.Second
		})),
	))
	inj, err := rt.Compile()
	require.NoError(t, err)

	svc, err := di.Get[*MockService](inj)
	require.NoError(t, err)
	require.NotNil(t, svc.Master)
	assert.Nil(t, svc.Slave)
	assert.Equal(t, []string{"localhost:2379"}, svc.Master.Endpoints())

	master, err := di.GetNamed[*clientv3.Client](inj, "master")
	require.NoError(t, err)
	assert.Same(t, svc.Master, master)

	assert.NoError(t, rt.Lifecycle.Stop(context.Background(), inj))
}

func TestDefaultClientIsUnqualified(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(
		core.WithLogger(logging.NewNopLogger()),
		etcd.New(etcd.WithClient(etcd.DefaultName)),
	))
	inj, err := rt.Compile()
	require.NoError(t, err)

	def, err := di.Get[*clientv3.Client](inj)
	require.NoError(t, err)
	named, err := di.GetNamed[*clientv3.Client](inj, etcd.DefaultName)
	require.NoError(t, err)
	assert.Same(t, named, def)

	assert.NoError(t, di.MustGet[*etcd.EtcdClientFactory](inj).Close())
}

func TestEtcdBuilder_Errors(t *testing.T) {
	builder := etcd.NewBuilder()
	builder.AddClient("invalid", func(o *etcd.EtcdClientOptions) {
		o.Endpoints = nil
	})
	builder.AddClient("slow", func(o *etcd.EtcdClientOptions) {
		o.DialTimeout = 0
	})
	builder.AddClient("duplicate", nil)
	builder.AddClient("duplicate", nil)

	_, err := builder.Build(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoints are required")
	assert.Contains(t, err.Error(), "dial timeout must be positive")
	assert.Contains(t, err.Error(), "already configured")
}
