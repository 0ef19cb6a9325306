package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hickeroar/parahash/bayes"
	"github.com/hickeroar/parahash/hashing"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var (
	makeSignalChannel = func() chan os.Signal { return make(chan os.Signal, 1) }
	notifySignals     = func(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }
	newServer         = func(addr string, handler http.Handler) httpServer {
		return &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       30 * time.Second,
		}
	}
	logger   = logrus.New()
	logFatal = func(v ...interface{}) { logger.Fatal(v...) }
	runMain  = func() error {
		cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
		if err != nil {
			return err
		}

		level, _ := logrus.ParseLevel(cfg.LogLevel)
		logger.SetLevel(level)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log := logger.WithField("service", "parahash")

		controller, err := NewClassifierAPI(cfg, log)
		if err != nil {
			return err
		}

		mux := http.NewServeMux()
		controller.RegisterRoutes(mux)
		controller.ready.Store(true)

		server := newServer(":"+cfg.Port, withAuthorizationToken(mux, cfg.AuthToken))
		log.Infof("Server is listening on port %s.", cfg.Port)

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logFatal(err)
			}
		}()

		sigCh := makeSignalChannel()
		notifySignals(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		controller.ready.Store(false)
		log.Info("Shutting down.")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(ctx)
	}
)

// ClassifierAPI serves the prediction and vectorization endpoints.
type ClassifierAPI struct {
	classifier *bayes.Classifier
	vectorizer *hashing.ParallelVectorizer
	formField  string
	modelPath  string
	log        *logrus.Entry
	ready      atomic.Bool
}

// NewClassifierAPI builds the vectorizer and classifier described by cfg and
// loads the persisted model when one is configured.
func NewClassifierAPI(cfg serviceConfig, log *logrus.Entry) (*ClassifierAPI, error) {
	vcfg, err := cfg.vectorizerConfig()
	if err != nil {
		return nil, err
	}
	vectorizer, err := hashing.NewParallelVectorizer(vcfg, hashing.WithLogger(log.WithField("component", "vectorizer")))
	if err != nil {
		return nil, err
	}

	classifier := bayes.NewClassifier(
		bayes.WithTokenizer(hashing.NewAnalyzer(vcfg).Tokenizer()),
		bayes.WithAnalyzerSignature(vcfg.AnalyzerSignature()),
	)
	if cfg.ModelPath != "" {
		err := classifier.LoadFromFile(cfg.ModelPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.WithField("path", cfg.ModelPath).Warn("model file not found, starting untrained")
		case err != nil:
			return nil, err
		default:
			log.WithField("path", cfg.ModelPath).WithField("categories", len(classifier.Categories())).Info("model loaded")
		}
	}

	return &ClassifierAPI{
		classifier: classifier,
		vectorizer: vectorizer,
		formField:  cfg.FormField,
		modelPath:  cfg.ModelPath,
		log:        log,
	}, nil
}

// RegisterRoutes registers all API routes on the provided ServeMux.
func (c *ClassifierAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/predict", c.PredictHandler)
	mux.HandleFunc("/vectorize", c.VectorizeHandler)
	mux.HandleFunc("/info", c.InfoHandler)
	mux.HandleFunc("/train/", c.TrainHandler)
	mux.HandleFunc("/untrain/", c.UntrainHandler)
	mux.HandleFunc("/flush", c.FlushHandler)
	mux.HandleFunc("/persist", c.PersistHandler)
	mux.HandleFunc("/healthz", HealthHandler)
	mux.HandleFunc("/readyz", c.ReadyHandler)
}

func isProbePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

// withAuthorizationToken requires "Authorization: Bearer <token>" on every
// route except the probes. An empty token disables the check.
func withAuthorizationToken(next http.Handler, token string) http.Handler {
	if token == "" {
		return next
	}
	want := []byte(token)

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if isProbePath(req.URL.Path) {
			next.ServeHTTP(w, req)
			return
		}

		got, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="parahash"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	jsonResponse, err := json.Marshal(value)
	if err != nil {
		http.Error(w, `{"error":"failed to marshal response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonResponse); err != nil {
		logger.WithError(err).Warn("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func isBodyTooLarge(err error) bool {
	var maxBytesError *http.MaxBytesError
	return errors.As(err, &maxBytesError)
}

func readBody(w http.ResponseWriter, req *http.Request) (string, bool) {
	req.Body = http.MaxBytesReader(w, req.Body, maxRequestBodyBytes)
	defer req.Body.Close()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return "", false
		}
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return "", false
	}

	return string(body), true
}

func categoryFromPath(path, prefix string) (string, bool) {
	category := strings.TrimPrefix(path, prefix)
	if category == "" || strings.Contains(category, "/") || !bayes.ValidCategoryName(category) {
		return "", false
	}
	return category, true
}

func requireMethod(w http.ResponseWriter, req *http.Request, method string) bool {
	if req.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// formValue returns the single value submitted for the requested form field.
// The field comes from the "field" query parameter, falling back to the
// configured default.
func (c *ClassifierAPI) formValue(w http.ResponseWriter, req *http.Request) (string, bool) {
	req.Body = http.MaxBytesReader(w, req.Body, maxRequestBodyBytes)
	defer req.Body.Close()

	field := req.URL.Query().Get("field")
	if field == "" {
		field = c.formField
	}
	if field == "" {
		writeError(w, http.StatusBadRequest, "form field name required")
		return "", false
	}

	var err error
	if mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		err = req.ParseMultipartForm(maxRequestBodyBytes)
	} else {
		err = req.ParseForm()
	}
	if err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return "", false
		}
		writeError(w, http.StatusBadRequest, "unable to parse form")
		return "", false
	}

	values := req.PostForm[field]
	switch {
	case len(values) == 0 || values[0] == "":
		writeError(w, http.StatusBadRequest, "missing form field "+field)
		return "", false
	case len(values) > 1:
		writeError(w, http.StatusBadRequest, "form field "+field+" submitted more than once")
		return "", false
	}
	return values[0], true
}

// PredictHandler returns the predicted label for one form field as a JSON string.
func (c *ClassifierAPI) PredictHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	text, ok := c.formValue(w, req)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, c.classifier.Predict(text))
}

// VectorizeHandler hashes a batch of documents into a CSR feature matrix.
func (c *ClassifierAPI) VectorizeHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	var payload VectorizeRequest
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	matrix, err := c.vectorizer.Transform(req.Context(), payload.Documents)
	if err != nil {
		var extErr *hashing.ExternalTransformError
		switch {
		case errors.As(err, &extErr):
			writeError(w, http.StatusUnprocessableEntity, extErr.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "request cancelled")
		default:
			c.log.WithError(err).Error("vectorize failed")
			writeError(w, http.StatusInternalServerError, "vectorizer unavailable")
		}
		return
	}

	writeJSON(w, http.StatusOK, NewMatrixResponse(matrix))
}

// InfoHandler returns the trained categories and the vectorizer settings.
func (c *ClassifierAPI) InfoHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, NewInfoClassifierResponse(c))
}

func (c *ClassifierAPI) trainingHandler(prefix string, apply func(category, sample string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !requireMethod(w, req, http.MethodPost) {
			return
		}

		category, ok := categoryFromPath(req.URL.Path, prefix)
		if !ok {
			writeError(w, http.StatusNotFound, "invalid category route")
			return
		}

		body, ok := readBody(w, req)
		if !ok {
			return
		}

		if err := apply(category, body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, NewTrainingClassifierResponse(c, true))
	}
}

// TrainHandler trains a category using request body text.
func (c *ClassifierAPI) TrainHandler(w http.ResponseWriter, req *http.Request) {
	c.trainingHandler("/train/", c.classifier.Train)(w, req)
}

// UntrainHandler untrains a category using request body text.
func (c *ClassifierAPI) UntrainHandler(w http.ResponseWriter, req *http.Request) {
	c.trainingHandler("/untrain/", c.classifier.Untrain)(w, req)
}

// FlushHandler deletes all training data and gives us a fresh slate.
func (c *ClassifierAPI) FlushHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	c.classifier.Flush()
	writeJSON(w, http.StatusOK, NewTrainingClassifierResponse(c, true))
}

// PersistHandler writes the trained model to the configured model path.
// Without --model there is nothing to persist to and it answers 409.
func (c *ClassifierAPI) PersistHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}
	if c.modelPath == "" {
		writeError(w, http.StatusConflict, "model path not configured")
		return
	}

	if err := c.classifier.SaveToFile(c.modelPath); err != nil {
		c.log.WithError(err).Error("persist model failed")
		writeError(w, http.StatusInternalServerError, "unable to persist model")
		return
	}
	writeJSON(w, http.StatusOK, NewTrainingClassifierResponse(c, true))
}

// HealthHandler returns liveness status for process health checks.
func HealthHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler returns readiness status for traffic checks.
func (c *ClassifierAPI) ReadyHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}
	if !c.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func main() {
	if err := runMain(); err != nil {
		logFatal(err)
	}
}
