package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/valelectronic/DERA-PROJECT/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware магазина DERA.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/login", h.LogIn)
		r.Post("/logout", h.LogOut)
		r.Post("/refresh-token", h.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Get("/profile", h.GetProfile)
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/featured", h.GetFeaturedProducts)
		r.Get("/category/{category}", h.GetProductsByCategory)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Get("/recommendations", h.GetRecommendedProducts)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware, h.authMiddleware.RequireAdmin)

			r.Get("/", h.GetProducts)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.EditProduct)
			r.Patch("/{id}", h.ToggleFeaturedProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/", h.GetCart)
		r.Post("/", h.AddToCart)
		r.Put("/{id}", h.UpdateCartQuantity)
		r.Delete("/", h.RemoveFromCart)
	})

	r.Route("/api/coupons", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/", h.GetCoupon)
		r.Post("/validate", h.ValidateCoupon)
	})

	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Post("/create-checkout-session", h.CreateCheckoutSession)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
