package main

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartattend/internal/access"
	"smartattend/internal/auth"
	"smartattend/internal/cloudinary"
	"smartattend/internal/config"
	"smartattend/internal/faceclient"
	"smartattend/internal/faceproc"
	"smartattend/internal/httpmiddleware"
	"smartattend/internal/ledger"
	"smartattend/internal/metrics"
	"smartattend/internal/notify"
	"smartattend/internal/otp"
	"smartattend/internal/recognizer"
	"smartattend/internal/roster"
	"smartattend/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable, using in-memory stores: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	// Without a database the roster endpoints answer 503 but the rest of
	// the surface stays usable for local development.
	var (
		accessStore access.Store
		ledgerStore ledger.Store
		rosterRepo  *roster.Repository
	)
	if db != nil && db.Client != nil {
		if merr := store.Migrate(ctx, db.Client); merr != nil {
			log.Printf("warning: migrate failed: %v", merr)
		}
		accessStore = access.NewPostgresStore(db.Client)
		ledgerStore = ledger.NewPostgresStore(db.Client)
		rosterRepo = roster.NewRepository(db.Client)
	} else {
		accessStore = access.NewMemoryStore()
		ledgerStore = ledger.NewMemoryStore()
	}
	accessSvc := access.NewService(accessStore)
	ledgerSvc := ledger.NewService(ledgerStore)

	var bus notify.Bus
	if cfg.BusBackend == "memory" {
		bus = notify.NewInMemory(64)
	} else {
		bus = notify.NewRedisBus(redisClient.Client)
	}

	var oracle recognizer.Oracle
	switch cfg.FaceBackend {
	case "process":
		oracle = faceproc.New(cfg.FaceCommand, cfg.FaceCallTimeout)
	case "http":
		fc := faceclient.New(cfg.FaceServiceURL, false, cfg.FaceCallTimeout)
		if herr := fc.Health(ctx); herr != nil {
			log.Printf("WARNING: face service not available: %v", herr)
		} else {
			log.Println("face service connected")
		}
		oracle = fc
	default:
		oracle = faceclient.New(cfg.FaceServiceURL, true, cfg.FaceCallTimeout)
		log.Println("face verification in skip mode, every frame matches")
	}

	var otpStore otp.Store
	if cfg.OTPStore == "redis" {
		otpStore = otp.NewRedisStore(redisClient.Client)
	} else {
		otpStore = otp.NewMemoryStore()
	}
	var sender otp.Sender
	switch {
	case cfg.SMTPHost != "":
		sender = otp.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword)
	case cfg.Env == "dev":
		sender = otp.LogSender{}
	}
	otpSvc := otp.NewService(otpStore, sender)
	go otpSvc.RunSweeper(ctx, otp.DefaultSweepEvery)

	// Separate bucket for passcode issuance so a noisy client cannot
	// spam a teacher's inbox from many IPs.
	otpLimiter := httpmiddleware.NewSimpleTokenBucket(3, 3)

	var cdnClient *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdnClient = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	// markPresent writes the ledger record, bumps counters and fans the
	// event out to the bus. Duplicate writes surface as ledger.ErrDuplicate.
	markPresent := func(ctx context.Context, rec ledger.Record) (ledger.Record, error) {
		stored, err := ledgerSvc.MarkPresent(ctx, rec)
		if err != nil {
			if errors.Is(err, ledger.ErrDuplicate) {
				metrics.AttendanceDuplicates.Inc()
			}
			return stored, err
		}
		metrics.AttendanceMarked.WithLabelValues(string(stored.Method)).Inc()
		evt := notify.Event{
			Kind:        notify.KindAttendanceMarked,
			Subject:     stored.Subject,
			Time:        stored.Time,
			Room:        stored.Room,
			RollNumber:  stored.RollNumber,
			StudentName: stored.StudentName,
			Day:         stored.Day(),
			At:          stored.Timestamp,
		}
		if perr := bus.Publish(ctx, evt); perr != nil {
			log.Printf("event publish failed: %v", perr)
		}
		return stored, nil
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/students/register", func(c *gin.Context) {
		var req struct {
			RollNumber int    `json:"roll_number" binding:"required"`
			Name       string `json:"name" binding:"required"`
			Email      string `json:"email"`
			Phone      string `json:"phone"`
			Course     string `json:"course"`
			Branch     string `json:"branch"`
			Year       int    `json:"year"`
			Semester   int    `json:"semester"`
			Photo      string `json:"photo"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if rosterRepo == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "student registry requires a database"})
			return
		}

		photoURL := ""
		if req.Photo != "" {
			if cdnClient == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
				return
			}
			result, uerr := cdnClient.UploadBase64(c.Request.Context(), req.Photo)
			if uerr != nil {
				log.Printf("reference photo upload failed: %v", uerr)
				c.JSON(http.StatusBadGateway, gin.H{"error": "photo upload failed"})
				return
			}
			photoURL = result.SecureURL
		}

		student, err := rosterRepo.CreateStudent(c.Request.Context(), roster.Student{
			RollNumber: req.RollNumber,
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Course:     req.Course,
			Branch:     req.Branch,
			Year:       req.Year,
			Semester:   req.Semester,
			PhotoURL:   photoURL,
		})
		if err != nil {
			if errors.Is(err, roster.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create student failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"student": student})
	})

	r.POST("/v1/students/login", func(c *gin.Context) {
		var req struct {
			RollNumber int    `json:"roll_number" binding:"required"`
			Name       string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if rosterRepo == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "student registry requires a database"})
			return
		}

		student, err := rosterRepo.GetStudentByRoll(c.Request.Context(), req.RollNumber)
		if err != nil || !strings.EqualFold(student.Name, req.Name) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		tokens, err := auth.Issue(strconv.Itoa(student.RollNumber), auth.RoleStudent, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
			"student":       student,
		})
	})

	r.POST("/v1/teachers/register", func(c *gin.Context) {
		var req struct {
			TeacherID   string `json:"teacher_id" binding:"required"`
			Name        string `json:"name" binding:"required"`
			Email       string `json:"email" binding:"required"`
			Phone       string `json:"phone"`
			Department  string `json:"department"`
			Designation string `json:"designation"`
			Password    string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if rosterRepo == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "teacher registry requires a database"})
			return
		}

		email, err := otp.NormalizeEmail(req.Email)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "email address is malformed"})
			return
		}
		hash, err := roster.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		teacher, err := rosterRepo.CreateTeacher(c.Request.Context(), roster.Teacher{
			TeacherID:    req.TeacherID,
			Name:         req.Name,
			Email:        email,
			Phone:        req.Phone,
			Department:   req.Department,
			Designation:  req.Designation,
			PasswordHash: hash,
		})
		if err != nil {
			if errors.Is(err, roster.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create teacher failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"teacher": teacher})
	})

	r.POST("/v1/teachers/login", func(c *gin.Context) {
		var req struct {
			TeacherID string `json:"teacher_id" binding:"required"`
			Password  string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if rosterRepo == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "teacher registry requires a database"})
			return
		}

		teacher, err := rosterRepo.GetTeacher(c.Request.Context(), req.TeacherID)
		if err != nil || !roster.CheckPassword(teacher.PasswordHash, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		if !otpLimiter.Allow("otp:" + teacher.Email) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many passcode requests, try again later"})
			return
		}
		if err := otpSvc.Issue(c.Request.Context(), teacher.Email, teacher.Name); err != nil {
			switch {
			case errors.Is(err, otp.ErrNotConfigured):
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "passcode delivery is not configured"})
			case errors.Is(err, otp.ErrInvalidEmail):
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "account email is malformed"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "passcode issue failed"})
			}
			return
		}
		metrics.OTPIssued.Inc()

		// The pending token only unlocks the passcode verification step.
		tokens, err := auth.Issue(teacher.TeacherID, auth.RoleTeacherPending, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"otp_sent":      true,
			"pending_token": tokens.AccessToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	pendingGroup := r.Group("/v1/teachers", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleTeacherPending))

	pendingGroup.POST("/otp/verify", func(c *gin.Context) {
		var req struct {
			Code string `json:"code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if rosterRepo == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "teacher registry requires a database"})
			return
		}

		claims, _ := auth.ClaimsFrom(c)
		teacher, err := rosterRepo.GetTeacher(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown teacher"})
			return
		}

		if err := otpSvc.Verify(c.Request.Context(), teacher.Email, req.Code); err != nil {
			metrics.OTPVerified.WithLabelValues("failure").Inc()
			switch {
			case errors.Is(err, otp.ErrNotFound):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "no active passcode, log in again"})
			case errors.Is(err, otp.ErrExpired):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "passcode has expired, log in again"})
			case errors.Is(err, otp.ErrTooManyAttempts):
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many wrong attempts, log in again"})
			case errors.Is(err, otp.ErrMismatch):
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "passcode verification failed"})
			}
			return
		}
		metrics.OTPVerified.WithLabelValues("success").Inc()

		tokens, err := auth.Issue(teacher.TeacherID, auth.RoleTeacher, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
			"teacher":       teacher,
		})
	})

	sharedGroup := r.Group("/v1", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleStudent, auth.RoleTeacher))

	sharedGroup.GET("/sessions/access", func(c *gin.Context) {
		key := access.Key{Subject: c.Query("subject"), Time: c.Query("time"), Room: c.Query("room")}
		granted, record, err := accessSvc.Status(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, access.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "access lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"granted": granted, "record": record})
	})

	sharedGroup.POST("/upload", func(c *gin.Context) {
		if cdnClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
			return
		}

		contentType := c.ContentType()
		var result *cloudinary.UploadResult
		var err error

		switch {
		case strings.Contains(contentType, "multipart/form-data"):
			file, header, ferr := c.Request.FormFile("file")
			if ferr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
				return
			}
			defer file.Close()
			data, ferr := io.ReadAll(file)
			if ferr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
				return
			}
			result, err = cdnClient.UploadBytes(c.Request.Context(), data, header.Filename)

		default:
			var body struct {
				Data string `json:"data" binding:"required"`
			}
			if berr := c.ShouldBindJSON(&body); berr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
				return
			}
			result, err = cdnClient.UploadBase64(c.Request.Context(), body.Data)
		}

		if err != nil {
			log.Printf("cloudinary upload failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"url":       result.SecureURL,
			"public_id": result.PublicID,
			"width":     result.Width,
			"height":    result.Height,
			"bytes":     result.Bytes,
		})
	})

	studentGroup := r.Group("/v1", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleStudent))

	studentGroup.POST("/frames", func(c *gin.Context) {
		var req struct {
			RollNumber int    `json:"roll_number" binding:"required"`
			Frame      string `json:"frame" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !callerIsStudent(c, req.RollNumber) {
			c.JSON(http.StatusForbidden, gin.H{"error": "token does not match roll number"})
			return
		}

		student, err := lookupStudent(c, rosterRepo, req.RollNumber)
		if err != nil {
			return // response already written
		}

		frame, err := decodeFrame(req.Frame)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "frame is not valid base64"})
			return
		}

		callCtx, cancel := context.WithTimeout(c.Request.Context(), cfg.FaceCallTimeout)
		defer cancel()
		verdict, verr := oracle.Verify(callCtx, student.PhotoURL, frame)
		metrics.FramesProcessed.Inc()
		if verr != nil {
			// Oracle unreachable; report a no-detection frame so the
			// client keeps its session alive.
			log.Printf("frame verification failed: %v", verr)
			c.JSON(http.StatusOK, gin.H{
				"face_detected": false,
				"matched":       false,
				"confidence":    0,
				"degraded":      true,
			})
			return
		}
		if verdict.Matched {
			metrics.FramesMatched.Inc()
		}
		c.JSON(http.StatusOK, verdict)
	})

	studentGroup.POST("/recognitions", func(c *gin.Context) {
		var req struct {
			RollNumber int      `json:"roll_number" binding:"required"`
			Subject    string   `json:"subject" binding:"required"`
			Time       string   `json:"time" binding:"required"`
			Room       string   `json:"room" binding:"required"`
			Frames     []string `json:"frames" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !callerIsStudent(c, req.RollNumber) {
			c.JSON(http.StatusForbidden, gin.H{"error": "token does not match roll number"})
			return
		}

		granted, _, err := accessSvc.Status(c.Request.Context(), access.Key{Subject: req.Subject, Time: req.Time, Room: req.Room})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "access lookup failed"})
			return
		}
		if !granted {
			c.JSON(http.StatusForbidden, gin.H{"error": "teacher has not granted access for this class"})
			return
		}

		student, err := lookupStudent(c, rosterRepo, req.RollNumber)
		if err != nil {
			return
		}
		if student.PhotoURL == "" {
			c.JSON(http.StatusConflict, gin.H{"error": "no reference photo on file, register with a photo first"})
			return
		}

		frames := make([][]byte, 0, len(req.Frames))
		for _, f := range req.Frames {
			decoded, derr := decodeFrame(f)
			if derr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "frame is not valid base64"})
				return
			}
			frames = append(frames, decoded)
		}

		sess := &recognizer.Session{
			Oracle:          oracle,
			RequiredMatches: cfg.RequiredMatches,
			Window:          cfg.RecognitionTTL,
			CallTimeout:     cfg.FaceCallTimeout,
			// Frames arrive pre-captured, no spacing needed here.
			FrameInterval: time.Millisecond,
		}
		result := sess.Run(c.Request.Context(), student.PhotoURL, recognizer.NewFrameList(frames))

		outcome := "timeout"
		if result.Success {
			outcome = "success"
		}
		metrics.RecognitionSessions.WithLabelValues(outcome).Inc()

		if !result.Success {
			c.JSON(http.StatusOK, gin.H{"result": result, "marked": false})
			return
		}

		record, err := markPresent(c.Request.Context(), ledger.Record{
			RollNumber:      student.RollNumber,
			StudentName:     student.Name,
			Method:          ledger.MethodFaceRecognition,
			Confidence:      result.Confidence,
			FramesProcessed: result.FramesProcessed,
			Subject:         req.Subject,
			Time:            req.Time,
			Room:            req.Room,
		})
		if err != nil {
			if errors.Is(err, ledger.ErrDuplicate) {
				c.JSON(http.StatusConflict, gin.H{"result": result, "marked": false, "error": "attendance already marked today"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "attendance write failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"result": result, "marked": true, "record": record})
	})

	studentGroup.POST("/attendance", func(c *gin.Context) {
		var req struct {
			RollNumber      int     `json:"roll_number" binding:"required"`
			Subject         string  `json:"subject" binding:"required"`
			Time            string  `json:"time" binding:"required"`
			Room            string  `json:"room" binding:"required"`
			Confidence      float64 `json:"confidence"`
			FramesProcessed int     `json:"frames_processed"`
			Method          string  `json:"method"`
			Status          string  `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !callerIsStudent(c, req.RollNumber) {
			c.JSON(http.StatusForbidden, gin.H{"error": "token does not match roll number"})
			return
		}

		granted, _, err := accessSvc.Status(c.Request.Context(), access.Key{Subject: req.Subject, Time: req.Time, Room: req.Room})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "access lookup failed"})
			return
		}
		if !granted {
			c.JSON(http.StatusForbidden, gin.H{"error": "teacher has not granted access for this class"})
			return
		}

		student, err := lookupStudent(c, rosterRepo, req.RollNumber)
		if err != nil {
			return
		}

		record, err := markPresent(c.Request.Context(), ledger.Record{
			RollNumber:      student.RollNumber,
			StudentName:     student.Name,
			Method:          ledger.Method(req.Method),
			Status:          ledger.Status(req.Status),
			Confidence:      req.Confidence,
			FramesProcessed: req.FramesProcessed,
			Subject:         req.Subject,
			Time:            req.Time,
			Room:            req.Room,
		})
		if err != nil {
			switch {
			case errors.Is(err, ledger.ErrDuplicate):
				c.JSON(http.StatusConflict, gin.H{"error": "attendance already marked today"})
			case errors.Is(err, ledger.ErrValidation):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "attendance write failed"})
			}
			return
		}
		c.JSON(http.StatusCreated, gin.H{"record": record})
	})

	studentGroup.GET("/attendance/recent", func(c *gin.Context) {
		claims, _ := auth.ClaimsFrom(c)
		roll, err := strconv.Atoi(claims.Subject)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "token subject is not a roll number"})
			return
		}
		limit := 0
		if v := c.Query("limit"); v != "" {
			if parsed, perr := strconv.Atoi(v); perr == nil {
				limit = parsed
			}
		}
		records, err := ledgerSvc.RecentForStudent(c.Request.Context(), roll, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	})

	teacherGroup := r.Group("/v1", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleTeacher))

	teacherGroup.PUT("/sessions/access", func(c *gin.Context) {
		var req struct {
			Subject string `json:"subject" binding:"required"`
			Time    string `json:"time" binding:"required"`
			Room    string `json:"room" binding:"required"`
			Granted *bool  `json:"granted" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims, _ := auth.ClaimsFrom(c)
		record, err := accessSvc.Set(c.Request.Context(), access.Key{Subject: req.Subject, Time: req.Time, Room: req.Room}, *req.Granted, claims.Subject)
		if err != nil {
			if errors.Is(err, access.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "access update failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"record": record})
	})

	teacherGroup.GET("/sessions/access/status", func(c *gin.Context) {
		key := access.Key{Subject: c.Query("subject"), Time: c.Query("time"), Room: c.Query("room")}
		granted, record, err := accessSvc.Status(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, access.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "access lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"granted": granted, "record": record})
	})

	teacherGroup.GET("/sessions/attendance", func(c *gin.Context) {
		subject, classTime, room := c.Query("subject"), c.Query("time"), c.Query("room")
		if subject == "" || classTime == "" || room == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "subject, time and room are required"})
			return
		}

		now := time.Now().UTC()
		since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		records, err := ledgerSvc.ListForSession(c.Request.Context(), subject, classTime, room, since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger lookup failed"})
			return
		}

		// The worker keeps a live counter in Redis; fall back to counting
		// the ledger when it is missing.
		total := -1
		day := now.Format("2006-01-02")
		if v, rerr := redisClient.Client.Get(c.Request.Context(), notify.HeadcountKey(subject, classTime, room, day)).Int(); rerr == nil {
			total = v
		}
		if total < 0 {
			total, err = ledgerSvc.HeadcountToday(c.Request.Context(), subject, classTime, room)
			if err != nil {
				total = len(records)
			}
		}

		c.JSON(http.StatusOK, gin.H{"records": records, "total": total})
	})

	// A recognition session may legitimately run the full window, and
	// its result is written on the same response; keep the write
	// timeout above that.
	writeTimeout := 15 * time.Second
	if floor := cfg.RecognitionTTL + 5*time.Second; writeTimeout < floor {
		writeTimeout = floor
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stop()

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// callerIsStudent checks the token was issued for the roll number the
// request claims to act for.
func callerIsStudent(c *gin.Context, rollNumber int) bool {
	claims, ok := auth.ClaimsFrom(c)
	return ok && claims.Subject == strconv.Itoa(rollNumber)
}

// lookupStudent fetches the student or writes the error response itself.
func lookupStudent(c *gin.Context, repo *roster.Repository, rollNumber int) (roster.Student, error) {
	if repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "student registry requires a database"})
		return roster.Student{}, errors.New("no database")
	}
	student, err := repo.GetStudentByRoll(c.Request.Context(), rollNumber)
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "student lookup failed"})
		}
		return roster.Student{}, err
	}
	return student, nil
}

// decodeFrame accepts raw base64 or a data URL ("data:image/jpeg;base64,...").
func decodeFrame(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ','); i >= 0 && strings.Contains(s[:i], ";base64") {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
