package routes

import (
	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/speakcheck/apiv1/auth"
	"github.com/speakcheck/apiv1/middlewares"
)

var validate *validator.Validate

// Per-route limits mirror the reverse-proxy policy: registration and reset
// requests at 3/min, login at 5/min, token validation at 10/min.
func perMinute(n int) *limiter.Limiter {
	lmt := tollbooth.NewLimiter(float64(n)/60.0, nil)
	lmt.SetBurst(n)
	lmt.SetMessageContentType("application/json")
	lmt.SetMessage(`{"success":false,"message":"Too many requests, please try again later","error_code":"RATE_LIMITED"}`)
	return lmt
}

func CreateRoutes(r *mux.Router, svc *auth.Service) {
	validate = validator.New()
	s := r.PathPrefix("/api/auth").Subrouter()
	AuthRouter(s, svc)
}

func AuthRouter(s *mux.Router, svc *auth.Service) {
	h := NewHandler(svc)

	s.Handle("/register", tollbooth.LimitFuncHandler(perMinute(3), h.Register)).Methods("POST")
	s.Handle("/login", tollbooth.LimitFuncHandler(perMinute(5), h.Login)).Methods("POST")
	s.HandleFunc("/logout", middlewares.RequireUser(svc, h.Logout)).Methods("POST")
	s.HandleFunc("/profile", middlewares.RequireUser(svc, h.GetProfile)).Methods("GET")
	s.HandleFunc("/profile", middlewares.RequireUser(svc, h.UpdateProfile)).Methods("PUT")
	s.Handle("/validate-token", tollbooth.LimitFuncHandler(perMinute(10), h.ValidateToken)).Methods("POST")
	s.Handle("/request-password-reset", tollbooth.LimitFuncHandler(perMinute(3), h.RequestPasswordReset)).Methods("POST")
	s.HandleFunc("/reset-password", h.ResetPassword).Methods("POST")
	s.HandleFunc("/request-verification", middlewares.RequireUser(svc, h.RequestVerification)).Methods("POST")
	s.HandleFunc("/verify-email", middlewares.RequireUser(svc, h.VerifyEmail)).Methods("POST")
	s.HandleFunc("/health", h.Health).Methods("GET")
}
