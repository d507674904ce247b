// Package api is the main api web server
package api

import (
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nfnt/resize"

	"inkframe/api/models"
	"inkframe/compose"
	"inkframe/display"
	"inkframe/slideshow"
	"inkframe/store"
	"inkframe/util"
	"inkframe/widget"
)

//go:embed web/templates/index.html web/static
var webFiles embed.FS

// maxUploadBytes caps photo uploads at 16MB.
const maxUploadBytes = 16 << 20

type WebServer struct {
	router *gin.Engine

	config     *store.ConfigStore
	photos     *store.PhotoStore
	registry   *widget.Registry
	compositor *compose.Compositor
	sink       display.Sink
	scheduler  *slideshow.Scheduler
}

func NewWebServer(
	config *store.ConfigStore,
	photos *store.PhotoStore,
	registry *widget.Registry,
	compositor *compose.Compositor,
	sink display.Sink,
	scheduler *slideshow.Scheduler,
) *WebServer {
	router := gin.Default()
	router.MaxMultipartMemory = maxUploadBytes

	ws := &WebServer{
		router:     router,
		config:     config,
		photos:     photos,
		registry:   registry,
		compositor: compositor,
		sink:       sink,
		scheduler:  scheduler,
	}

	ws.setupRoutes()

	return ws
}

func (ws *WebServer) setupRoutes() {
	// Serve static files from the embedded filesystem (strip "web/" prefix)
	staticFS, err := fs.Sub(webFiles, "web/static")
	if err != nil {
		log.Fatalf("Failed to create static filesystem: %v", err)
	}
	ws.router.StaticFS("/static", http.FS(staticFS))

	ws.router.GET("/", func(c *gin.Context) {
		data, err := webFiles.ReadFile("web/templates/index.html")
		if err != nil {
			slog.Error("failed to read index.html", "error", err)
			c.String(http.StatusInternalServerError, "Failed to load index.html")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	})

	ws.router.GET("/photos/:name", ws.handleServePhoto)
	ws.router.GET("/photos/:name/with-widgets", ws.handlePhotoWithWidgets)

	// API routes
	ws.router.GET("/api/config", ws.handleGetConfig)
	ws.router.POST("/api/config", ws.handleUpdateConfig)
	ws.router.GET("/api/photos", ws.handleListPhotos)
	ws.router.POST("/api/photos/upload", ws.handleUpload)
	ws.router.POST("/api/photos/upload-cropped", ws.handleUploadCropped)
	ws.router.GET("/api/photos/original/:name", ws.handleServeOriginal)
	ws.router.DELETE("/api/photos/:name", ws.handleDeletePhoto)
	ws.router.GET("/api/preview/:name", ws.handleThumbnail)
	ws.router.POST("/api/preview", ws.handleWidgetPreview)
	ws.router.POST("/api/display/:name", ws.handleDisplayNow)
	ws.router.GET("/api/widgets", ws.handleListWidgets)
	ws.router.GET("/api/widgets/:type", ws.handleGetWidget)
	ws.router.POST("/api/widgets/:type", ws.handleUpdateWidget)
	ws.router.GET("/api/widgets/:type/options", ws.handleWidgetOptions)
	ws.router.GET("/api/status", ws.handleStatus)
}

func (ws *WebServer) Start(port string) {
	log.Printf("Starting web server on port %s", port)
	if err := ws.router.Run(port); err != nil {
		log.Fatalf("Failed to start web server: %v", err)
	}
}

// Handler exposes the router for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

func (ws *WebServer) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ws.config.Load())
}

var validQuietTime = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)

func (ws *WebServer) handleUpdateConfig(c *gin.Context) {
	var req models.UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	cfg := ws.config.Load()

	if req.CycleEnabled != nil {
		cfg.CycleEnabled = *req.CycleEnabled
	}
	if req.CycleInterval != nil {
		// floor-clamp rather than reject so a too-small interval still
		// produces a usable document
		cfg.CycleInterval = max(store.MinCycleInterval, *req.CycleInterval)
	}
	if req.Orientation != nil {
		if *req.Orientation != store.OrientationLandscape && *req.Orientation != store.OrientationPortrait {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: fmt.Sprintf("orientation must be %q or %q", store.OrientationLandscape, store.OrientationPortrait),
			})
			return
		}
		cfg.Orientation = *req.Orientation
	}
	if req.PhotoOrder != nil {
		cfg.PhotoOrder = *req.PhotoOrder
	}
	if req.QuietHours != nil {
		if !validQuietTime.MatchString(req.QuietHours.Start) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid quiet hours start time: need 23:15, got %s", req.QuietHours.Start)})
			return
		}
		if !validQuietTime.MatchString(req.QuietHours.End) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid quiet hours end time: need 23:15, got %s", req.QuietHours.End)})
			return
		}
		cfg.QuietHours = *req.QuietHours
	}

	if err := ws.config.Save(cfg); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to save config: %v", err)})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

func (ws *WebServer) handleListPhotos(c *gin.Context) {
	photos, err := ws.photos.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to list photos: %v", err)})
		return
	}
	c.JSON(http.StatusOK, models.PhotoListResponse{Photos: photos})
}

func (ws *WebServer) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "No file provided"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "File exceeds the 16MB upload limit"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to read upload: %v", err)})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to read upload: %v", err)})
		return
	}

	ref, err := ws.photos.Save(file.Filename, data, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if taken, ok := store.TakenAt(data); ok {
		slog.Info("photo uploaded", "name", ref.Name, "taken_at", taken)
	} else {
		slog.Info("photo uploaded", "name", ref.Name)
	}

	c.JSON(http.StatusOK, models.UploadResponse{Name: ref.Name, Success: true})
}

func (ws *WebServer) handleUploadCropped(c *gin.Context) {
	var req models.CroppedUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}
	if req.Image == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "No image data provided"})
		return
	}

	// Accept both a bare base64 payload and a full data URL
	payload := req.Image
	if idx := strings.Index(payload, ","); idx >= 0 {
		payload = payload[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid base64 image data: %v", err)})
		return
	}

	img, err := util.DecodeImage(bytes.NewReader(raw))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid image data: %v", err)})
		return
	}
	var buf bytes.Buffer
	if err := util.EncodeImage(&buf, img, "png", 0); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to encode cropped image: %v", err)})
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = "cropped.png"
	}

	ref, err := ws.photos.SaveCropped(filename, buf.Bytes(), req.IsRecrop, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.UploadResponse{Name: ref.Name, Success: true})
}

func (ws *WebServer) handleDeletePhoto(c *gin.Context) {
	name := util.SanitizeFilename(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Photo name is required"})
		return
	}

	if err := ws.photos.Delete(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Photo '%s' not found", name)})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to delete photo: %v", err)})
		return
	}

	c.JSON(http.StatusOK, models.DeleteResponse{Success: true})
}

func (ws *WebServer) handleServePhoto(c *gin.Context) {
	name := util.SanitizeFilename(c.Param("name"))
	path := ws.photos.DisplayPath(name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Photo '%s' not found", name)})
		return
	}
	c.File(path)
}

func (ws *WebServer) handleServeOriginal(c *gin.Context) {
	name := util.SanitizeFilename(c.Param("name"))
	path := ws.photos.OriginalPath(name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Original '%s' not found", name)})
		return
	}
	c.File(path)
}

func (ws *WebServer) handlePhotoWithWidgets(c *gin.Context) {
	name := util.SanitizeFilename(c.Param("name"))
	if !ws.photos.Exists(name) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Photo '%s' not found", name)})
		return
	}

	cfg := ws.config.Load()
	img, err := ws.compositor.PrepareDisplayImage(ws.photos.DisplayPath(name), cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to render image with widgets: %v", err)})
		return
	}

	format := c.DefaultQuery("format", "png")
	var buf bytes.Buffer
	if err := util.EncodeImage(&buf, img, format, 90); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.Data(http.StatusOK, util.ImageContentType(format), buf.Bytes())
}

func (ws *WebServer) handleThumbnail(c *gin.Context) {
	name := util.SanitizeFilename(c.Param("name"))
	path := ws.photos.DisplayPath(name)
	f, err := os.Open(path)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Photo '%s' not found", name)})
		return
	}
	defer f.Close()

	img, err := util.DecodeImage(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to decode photo: %v", err)})
		return
	}

	thumb := resize.Thumbnail(200, 200, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := util.EncodeImage(&buf, thumb, "png", 0); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to encode thumbnail: %v", err)})
		return
	}

	c.JSON(http.StatusOK, models.ThumbnailResponse{
		Thumbnail: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

func (ws *WebServer) handleDisplayNow(c *gin.Context) {
	name := util.SanitizeFilename(c.Param("name"))
	if !ws.photos.Exists(name) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Photo '%s' not found", name)})
		return
	}

	cfg := ws.config.Load()
	cfg.CurrentPhoto = name
	if err := ws.config.Save(cfg); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to save config: %v", err)})
		return
	}

	img, err := ws.compositor.PrepareDisplayImage(ws.photos.DisplayPath(name), cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to prepare image: %v", err)})
		return
	}

	// A missing or failing panel is reported, not treated as a request error
	outErr := ws.sink.Output(img)
	if outErr != nil && !errors.Is(outErr, display.ErrUnavailable) {
		slog.Warn("unable to push photo to display", "name", name, "error", outErr)
	}

	c.JSON(http.StatusOK, models.DisplayResponse{Success: outErr == nil, Displayed: name})
}

func (ws *WebServer) handleListWidgets(c *gin.Context) {
	cfg := ws.config.Load()

	available := make(map[string]models.AvailableWidget)
	for _, widgetType := range ws.registry.Types() {
		def, ok := ws.registry.Lookup(widgetType)
		if !ok {
			continue
		}
		defaults, err := json.Marshal(def.Defaults)
		if err != nil {
			slog.Warn("unable to encode widget defaults", "type", widgetType, "error", err)
			continue
		}
		available[widgetType] = models.AvailableWidget{
			Name:          titleCase(widgetType),
			DefaultConfig: defaults,
		}
	}

	c.JSON(http.StatusOK, models.WidgetListResponse{Current: cfg.Widgets, Available: available})
}

func (ws *WebServer) handleGetWidget(c *gin.Context) {
	widgetType := c.Param("type")
	def, known := ws.registry.Lookup(widgetType)

	cfg := ws.config.Load()
	if raw, ok := cfg.Widgets[widgetType]; ok {
		c.Data(http.StatusOK, "application/json", raw)
		return
	}
	if !known {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Unknown widget type: %s", widgetType)})
		return
	}
	c.JSON(http.StatusOK, def.Defaults)
}

func (ws *WebServer) handleUpdateWidget(c *gin.Context) {
	widgetType := c.Param("type")
	if _, ok := ws.registry.Lookup(widgetType); !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Unknown widget type: %s", widgetType)})
		return
	}

	var raw json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}
	if _, err := widget.ParseSettings(raw); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	// Full replace of the stored widget config, not a merge
	cfg := ws.config.Load()
	if cfg.Widgets == nil {
		cfg.Widgets = make(map[string]json.RawMessage)
	}
	cfg.Widgets[widgetType] = raw
	if err := ws.config.Save(cfg); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to save config: %v", err)})
		return
	}

	c.JSON(http.StatusOK, models.WidgetUpdateResponse{Success: true, Config: raw})
}

func (ws *WebServer) handleWidgetOptions(c *gin.Context) {
	widgetType := c.Param("type")
	if _, ok := ws.registry.Lookup(widgetType); !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Unknown widget type: %s", widgetType)})
		return
	}

	c.JSON(http.StatusOK, models.WidgetOptionsResponse{
		PositionPresets: widget.PositionPresets(),
		StylePresets:    widget.StylePresets(),
	})
}

func (ws *WebServer) handleWidgetPreview(c *gin.Context) {
	var req models.WidgetPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	orientation := req.Orientation
	if orientation == "" {
		orientation = store.OrientationLandscape
	}
	if orientation != store.OrientationLandscape && orientation != store.OrientationPortrait {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: fmt.Sprintf("orientation must be %q or %q", store.OrientationLandscape, store.OrientationPortrait),
		})
		return
	}

	name := util.SanitizeFilename(req.Photo)
	if name == "" {
		// No photo specified: preview on the newest one
		photos, err := ws.photos.List()
		if err != nil || len(photos) == 0 {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "No photos available for preview"})
			return
		}
		name = photos[0].Name
	} else if !ws.photos.Exists(name) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Photo '%s' not found", name)})
		return
	}

	cfg := ws.config.Load()
	cfg.Orientation = orientation
	cfg.Widgets = req.Widgets

	img, err := ws.compositor.PrepareDisplayImage(ws.photos.DisplayPath(name), cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Preview generation failed: %v", err)})
		return
	}

	var buf bytes.Buffer
	if err := util.EncodeImage(&buf, img, "png", 0); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to encode preview: %v", err)})
		return
	}

	c.JSON(http.StatusOK, models.PreviewResponse{
		Preview: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

func (ws *WebServer) handleStatus(c *gin.Context) {
	cfg := ws.config.Load()
	photos, err := ws.photos.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to list photos: %v", err)})
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{
		SchedulerRunning: ws.scheduler.Running(),
		DisplayAvailable: ws.sink.Available(),
		PhotoCount:       len(photos),
		CurrentPhoto:     cfg.CurrentPhoto,
	})
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
