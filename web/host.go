package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// Host Web 主机
type Host struct {
	port        int
	engine      *gin.Engine
	server      *http.Server
	logger      logging.Logger
	inj         *di.Injector
	controllers []di.Key
	middleware  []di.Key

	mapOnce sync.Once
	mapErr  error

	mu   sync.Mutex
	addr string
}

// Handler 解析控制器并返回路由处理器，可直接用于 httptest
func (h *Host) Handler() (http.Handler, error) {
	if err := h.mapRoutes(); err != nil {
		return nil, err
	}
	return h.engine, nil
}

// Address 获取监听地址 (e.g., "[::]:50234")，仅在 Start 后有效
func (h *Host) Address() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addr
}

// Start 启动 Web 主机，阻塞直到服务退出
func (h *Host) Start(ctx context.Context) error {
	if err := h.mapRoutes(); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", h.port)
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", addr, err)
	}

	h.mu.Lock()
	h.addr = ln.Addr().String()
	h.mu.Unlock()
	h.logger.Info("web host started", logging.String("address", ln.Addr().String()))

	if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		h.logger.Error("web host error", logging.Err(err))
		return err
	}
	return nil
}

// Stop 停止 Web 主机
func (h *Host) Stop(ctx context.Context) error {
	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("failed to shutdown web host gracefully", logging.Err(err))
		return err
	}
	h.logger.Info("web host stopped")
	return nil
}

// mapRoutes 从注入器解析中间件与控制器，只执行一次
func (h *Host) mapRoutes() error {
	h.mapOnce.Do(func() {
		for _, key := range h.middleware {
			v, err := h.inj.Resolve(key)
			if err != nil {
				h.mapErr = fmt.Errorf("web: failed to resolve middleware %v: %w", key, err)
				return
			}
			mw, ok := v.(Middleware)
			if !ok {
				h.mapErr = fmt.Errorf("web: %v resolved to %T which does not implement web.Middleware", key, v)
				return
			}
			h.engine.Use(mw.Handle)
		}

		for _, key := range h.controllers {
			v, err := h.inj.Resolve(key)
			if err != nil {
				h.mapErr = fmt.Errorf("web: failed to resolve controller %v: %w", key, err)
				return
			}
			ctrl, ok := v.(Controller)
			if !ok {
				h.mapErr = fmt.Errorf("web: %v resolved to %T which does not implement web.Controller", key, v)
				return
			}
			ctrl.MountRoutes(h.engine)
			h.logger.Debug("mapped controller routes", logging.String("controller", key.String()))
		}
	})
	return h.mapErr
}
