package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pi-top/miniscreen/apimodel"
	"github.com/pi-top/miniscreen/assistant"
	"github.com/pi-top/miniscreen/internal/srv/config"
	"github.com/pi-top/miniscreen/internal/srv/event"
	"github.com/pi-top/miniscreen/internal/tool"
	"github.com/pi-top/miniscreen/oled"
	"github.com/sirupsen/logrus"
)

// maxUploadSize bounds image and animation bodies.
const maxUploadSize = 16 << 20

// Api is the HTTP control interface. Every request is turned into an
// event.ApiEvent and answered once the event loop has handled it.
type Api struct {
	eventChannel chan event.ApiEvent

	router    *mux.Router
	apiRouter *mux.Router
	server    *http.Server

	config *config.ServerConfig
}

func NewApi(config *config.ServerConfig) *Api {
	api := &Api{
		config:       config,
		eventChannel: make(chan event.ApiEvent),
	}

	api.router = mux.NewRouter().StrictSlash(false)

	api.apiRouter = api.router.PathPrefix("/api").Subrouter()
	api.apiRouter.NotFoundHandler = http.HandlerFunc(ErrorNotFoundAction)
	api.apiRouter.MethodNotAllowedHandler = http.HandlerFunc(ErrorMethodNotAllowedAction)

	// Auth middleware
	api.apiRouter.Use(
		func(handler http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer func() {
					if rec := recover(); rec != nil {
						logrus.Warningf("recovered from panic : [%v] - stack trace : \n [%s]", rec, debug.Stack())
						GlobalErrorAction(w, fmt.Sprintf("%v", rec), http.StatusInternalServerError)
					}
				}()

				if r.Header.Get("x-api-key") != config.ApiParam.ApiKey {
					ErrorStatusAction(w, r, http.StatusForbidden)
					return
				}

				logrus.Debugf("PATH: %s %s %s", r.Method, r.Host, r.URL.Path)

				handler.ServeHTTP(w, r)
			})
		})

	api.apiRouter.HandleFunc("/is_alive",
		func(w http.ResponseWriter, r *http.Request) {
			ErrorStatusAction(w, r, http.StatusOK)
		}).Methods("GET")

	api.apiRouter.HandleFunc("/text",
		func(w http.ResponseWriter, r *http.Request) {
			var request apimodel.TextRequest
			if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadSize)).Decode(&request); err != nil {
				apimodel.WrongParametersErrorMessage.Send(w)
				return
			}
			api.dispatch(w, r, event.ApiEventTextData{Request: request})
		}).Methods("POST")

	api.apiRouter.HandleFunc("/image",
		func(w http.ResponseWriter, r *http.Request) {
			invert, err := boolQuery(r, "invert")
			if err != nil {
				ErrorStatusAction(w, r, http.StatusBadRequest)
				return
			}
			clip, err := readClip(r)
			if err != nil {
				GlobalErrorAction(w, err.Error(), http.StatusBadRequest)
				return
			}
			api.dispatch(w, r, event.ApiEventImageData{Image: clip.First(), Invert: invert})
		}).Methods("POST")

	api.apiRouter.HandleFunc("/animation",
		func(w http.ResponseWriter, r *http.Request) {
			loop, err := boolQuery(r, "loop")
			if err != nil {
				ErrorStatusAction(w, r, http.StatusBadRequest)
				return
			}
			clip, err := readClip(r)
			if err != nil {
				GlobalErrorAction(w, err.Error(), http.StatusBadRequest)
				return
			}
			api.dispatch(w, r, event.ApiEventAnimationData{Clip: clip, Loop: loop})
		}).Methods("POST")

	api.apiRouter.HandleFunc("/clear",
		func(w http.ResponseWriter, r *http.Request) {
			api.dispatch(w, r, event.ApiEventClearData{})
		}).Methods("POST")

	api.apiRouter.HandleFunc("/contrast/{value}",
		func(w http.ResponseWriter, r *http.Request) {
			contrast, err := strconv.Atoi(mux.Vars(r)["value"])
			if err != nil {
				ErrorStatusAction(w, r, http.StatusBadRequest)
				return
			}
			api.dispatch(w, r, event.ApiEventContrastData{Contrast: contrast})
		}).Methods("POST")

	api.apiRouter.HandleFunc("/visibility/{mode:show|hide}",
		func(w http.ResponseWriter, r *http.Request) {
			api.dispatch(w, r, event.ApiEventVisibilityData{Visible: mux.Vars(r)["mode"] == "show"})
		}).Methods("POST")

	api.apiRouter.HandleFunc("/buttons",
		func(w http.ResponseWriter, r *http.Request) {
			state := &apimodel.ButtonsState{}
			if api.dispatchSilently(w, event.ApiEventButtonsData{State: state}) {
				sendJSON(w, state)
			}
		}).Methods("GET")

	api.apiRouter.HandleFunc("/state",
		func(w http.ResponseWriter, r *http.Request) {
			state := &apimodel.ScreenState{}
			if api.dispatchSilently(w, event.ApiEventStateData{State: state}) {
				sendJSON(w, state)
			}
		}).Methods("GET")

	headersOk := handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "x-api-key"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})

	api.server = &http.Server{
		Addr:         ":" + strconv.FormatInt(config.ApiParam.Port, 10),
		Handler:      handlers.CompressHandler(handlers.CORS(originsOk, headersOk, methodsOk)(api.router)),
		ReadTimeout:  time.Second * 240,
		WriteTimeout: time.Second * 240,
		IdleTimeout:  time.Second * 240,
	}

	return api
}

// Handler returns the router without the CORS and compression layers.
func (d *Api) Handler() http.Handler {
	return d.router
}

func (d *Api) Start() {
	if !d.config.ApiParam.Enabled {
		logrus.Infof("Api device disabled")
		return
	}
	logrus.Infof("Start api device on %s", d.server.Addr)

	if !d.config.ApiParam.Ssl {
		go func() {
			if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.Error(err)
			}
		}()
		return
	}

	if err := d.ensureCertificate(); err != nil {
		logrus.Errorf("Unable to start api device: %v", err)
		return
	}
	go func() {
		err := d.server.ListenAndServeTLS(d.selfSignedCertFilename(), d.selfSignedKeyFilename())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Error(err)
		}
	}()
}

func (d *Api) ensureCertificate() error {
	existServerCert, err := tool.IsFileExists(d.selfSignedCertFilename())
	if err != nil {
		return err
	}
	existServerKey, err := tool.IsFileExists(d.selfSignedKeyFilename())
	if err != nil {
		return err
	}
	if existServerCert && existServerKey {
		return nil
	}

	logrus.Info("Missing cert and key files, trying to generate them...")
	err = tool.GenerateTlsCertificate(
		"pi-top",
		"miniscreend",
		d.selfSignedKeyFilename(),
		d.selfSignedCertFilename(),
		[]string{"localhost", "127.0.0.1"})
	if err != nil {
		return fmt.Errorf("unable to generate cert and key files: %w", err)
	}
	logrus.Info("Self-signed cert and key files generated")
	return nil
}

func (d *Api) StopSendingEvent() {
	logrus.Infof("Stop api device")
	if err := d.server.Shutdown(context.Background()); err != nil {
		logrus.Warnf("Unable to shut the api down: %v", err)
	}
}

func (d *Api) EventChannel() chan event.ApiEvent {
	return d.eventChannel
}

func (d *Api) selfSignedKeyFilename() string {
	return filepath.Join(d.config.ConfigDir, "key.pem")
}

func (d *Api) selfSignedCertFilename() string {
	return filepath.Join(d.config.ConfigDir, "cert.pem")
}

func (d *Api) post(data interface{}) error {
	result := make(chan error)
	d.eventChannel <- event.ApiEvent{Result: result, Data: data}
	return <-result
}

func (d *Api) dispatch(w http.ResponseWriter, r *http.Request, data interface{}) {
	if d.dispatchSilently(w, data) {
		ErrorStatusAction(w, r, http.StatusOK)
	}
}

// dispatchSilently answers with an error envelope on failure and leaves the
// answer to the caller on success.
func (d *Api) dispatchSilently(w http.ResponseWriter, data interface{}) bool {
	err := d.post(data)
	if err == nil {
		return true
	}
	GlobalErrorAction(w, err.Error(), errorStatus(err))
	return false
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, oled.ErrInvalidArgument), errors.Is(err, assistant.ErrInvalidTextOption):
		return http.StatusBadRequest
	default:
		return http.StatusForbidden
	}
}

func boolQuery(r *http.Request, name string) (bool, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}

func readClip(r *http.Request) (*assistant.AnimationClip, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		return nil, err
	}
	return assistant.DecodeAnimationClip(raw)
}

func sendJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("Unable to encode answer: %v", err)
	}
}

func ErrorNotFoundAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusNotFound)
}

func ErrorMethodNotAllowedAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusMethodNotAllowed)
}

func ErrorStatusAction(w http.ResponseWriter, r *http.Request, status int) {
	GlobalErrorAction(w, "", status)
}

func GlobalErrorAction(w http.ResponseWriter, message string, status int) {
	apimodel.ErrorMessage{ErrStatusCode: status, ErrMessage: message}.Send(w)
}
