package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"feeddigest/models"
	"feeddigest/utils"
)

const shutdownTimeout = 5 * time.Second

// FeedbackStore 反馈存储
type FeedbackStore interface {
	AddFeedback(ctx context.Context, section, rating string) (models.FeedbackEntry, error)
	ListFeedback(ctx context.Context, limit int) ([]models.FeedbackEntry, error)
}

// Preview 本地预览服务：静态页面、自动刷新与反馈接口
type Preview struct {
	OutputDir string
	// 可为 nil，此时反馈接口返回 503
	Feedback FeedbackStore
	Log      *zap.SugaredLogger

	engine   *gin.Engine
	hub      *reloadHub
	upgrader websocket.Upgrader
}

type feedbackRequest struct {
	Section string `json:"section" binding:"required"`
	Rating  string `json:"rating" binding:"required"`
}

func NewPreview(outputDir string, feedback FeedbackStore, log *zap.SugaredLogger) *Preview {
	gin.SetMode(gin.ReleaseMode)
	p := &Preview{
		OutputDir: outputDir,
		Feedback:  feedback,
		Log:       log,
		hub:       newReloadHub(),
	}
	p.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 仅用于本地预览
		CheckOrigin: func(*http.Request) bool { return true },
	}

	r := gin.New()
	r.Use(gin.Recovery(), p.requestLogger())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(config))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now(), "clients": p.hub.count()})
		})
		api.GET("/feedback", p.listFeedback)
		api.POST("/feedback", p.addFeedback)
	}
	r.GET("/ws/reload", p.handleReload)
	r.NoRoute(p.serveStatic)

	p.engine = r
	return p
}

// Handler 返回 HTTP 处理器
func (p *Preview) Handler() http.Handler { return p.engine }

// Notify 通知所有页面刷新，返回收到通知的连接数
func (p *Preview) Notify() int {
	n := p.hub.broadcast(reloadMessage)
	if n > 0 {
		p.Log.Debugf("[预览] 已通知 %d 个页面刷新", n)
	}
	return n
}

// Close 断开所有 websocket 连接并等待其处理协程退出
func (p *Preview) Close() {
	p.hub.close()
}

// Run 监听 addr，直到 ctx 结束
func (p *Preview) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", addr, err)
	}
	return p.Serve(ctx, ln)
}

// Serve 在 ln 上提供服务，同时监控输出目录；ctx 结束后优雅关闭
func (p *Preview) Serve(ctx context.Context, ln net.Listener) error {
	archive := filepath.Join(p.OutputDir, "archive")
	if err := os.MkdirAll(archive, 0755); err != nil {
		ln.Close()
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := utils.WatchPaths(watchCtx, []string{p.OutputDir, archive}, 200*time.Millisecond, func(string) {
			p.Notify()
		}, p.Log)
		if err != nil {
			p.Log.Warnf("[预览] 输出目录监控不可用: %v", err)
		}
	}()

	srv := &http.Server{Handler: p.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	p.Log.Infof("[预览] 服务已启动: http://%s", ln.Addr())

	var err error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = srv.Shutdown(shutdownCtx)
		cancel()
		<-errCh
	case err = <-errCh:
	}

	stopWatch()
	wg.Wait()
	p.Close()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	p.Log.Infof("[预览] 服务已停止")
	return err
}

func (p *Preview) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		p.Log.Debugw("[预览] 请求",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (p *Preview) handleReload(c *gin.Context) {
	conn, err := p.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		p.Log.Warnf("[预览] websocket 升级失败: %v", err)
		return
	}
	if !p.hub.add(conn) {
		conn.Close()
		return
	}
	defer p.hub.remove(conn)
	defer conn.Close()

	// 只读以检测断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (p *Preview) addFeedback(c *gin.Context) {
	if p.Feedback == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feedback store not configured"})
		return
	}
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := p.Feedback.AddFeedback(c.Request.Context(), req.Section, req.Rating)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidRating) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p.Log.Errorf("[反馈] 保存失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save feedback"})
		return
	}
	p.Log.Infof("[反馈] 版块 [%s]: %s", entry.Section, entry.Rating)
	c.JSON(http.StatusCreated, entry)
}

func (p *Preview) listFeedback(c *gin.Context) {
	if p.Feedback == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feedback store not configured"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	entries, err := p.Feedback.ListFeedback(c.Request.Context(), limit)
	if err != nil {
		p.Log.Errorf("[反馈] 读取失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list feedback"})
		return
	}
	if entries == nil {
		entries = []models.FeedbackEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"feedback": entries})
}

// serveStatic 提供输出目录中的文件，HTML 页面注入自动刷新脚本
func (p *Preview) serveStatic(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	rel := path.Clean("/" + c.Request.URL.Path)
	full := filepath.Join(p.OutputDir, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		full = filepath.Join(full, "index.html")
		info, err = os.Stat(full)
	}
	if err != nil || info.IsDir() {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}

	if !strings.EqualFold(filepath.Ext(full), ".html") {
		c.File(full)
		return
	}
	data, err := os.ReadFile(full)
	if err != nil {
		c.String(http.StatusInternalServerError, "read error")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", injectReload(data))
}

func injectReload(page []byte) []byte {
	idx := bytes.LastIndex(page, []byte("</body>"))
	if idx < 0 {
		return append(page, liveReloadScript...)
	}
	out := make([]byte, 0, len(page)+len(liveReloadScript))
	out = append(out, page[:idx]...)
	out = append(out, liveReloadScript...)
	return append(out, page[idx:]...)
}
