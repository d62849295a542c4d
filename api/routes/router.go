package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderlift/orderlift-backend/api/controllers"
	"github.com/orderlift/orderlift-backend/api/middleware"
	catalogsvc "github.com/orderlift/orderlift-backend/internal/catalog"
	logisticssvc "github.com/orderlift/orderlift-backend/internal/logistics"
	policysvc "github.com/orderlift/orderlift-backend/internal/policies"
	pricingsvc "github.com/orderlift/orderlift-backend/internal/pricing"
	scenariosvc "github.com/orderlift/orderlift-backend/internal/scenarios"
	"github.com/orderlift/orderlift-backend/pkg/config"
	"github.com/orderlift/orderlift-backend/pkg/db"
	"github.com/orderlift/orderlift-backend/pkg/logger"
	"github.com/orderlift/orderlift-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	pricingService pricingsvc.Service,
	scenarioService scenariosvc.Service,
	policyService policysvc.Service,
	catalogService catalogsvc.Service,
	logisticsService logisticssvc.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Actor(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ListItems(catalogService, logg))
			r.Post("/", controllers.CreateItem(catalogService, logg))
			r.Get("/{itemCode}", controllers.GetItem(catalogService, logg))
			r.Put("/{itemCode}/cost", controllers.UpdateItemCost(catalogService, logg))
			r.Get("/{itemCode}/cost-history", controllers.ListItemCostHistory(catalogService, logg))
			r.Post("/{itemCode}/market-prices", controllers.RecordMarketPrice(catalogService, logg))
			r.Get("/{itemCode}/market-prices", controllers.ListMarketPrices(catalogService, logg))
		})

		r.Post("/price-list-entries", controllers.AddPriceListEntry(catalogService, logg))

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", controllers.ListScenarios(scenarioService, logg))
			r.Post("/", controllers.CreateScenario(scenarioService, logg))
			r.Get("/{scenarioID}", controllers.GetScenario(scenarioService, logg))
			r.Put("/{scenarioID}/templates", controllers.ReplaceScenarioTemplates(scenarioService, logg))
		})

		r.Route("/policies", func(r chi.Router) {
			r.Route("/margin", func(r chi.Router) {
				r.Get("/", controllers.ListMarginPolicies(policyService, logg))
				r.Post("/", controllers.CreateMarginPolicy(policyService, logg))
				r.Get("/{policyID}", controllers.GetMarginPolicy(policyService, logg))
				r.Put("/{policyID}/rules", controllers.ReplaceMarginRules(policyService, logg))
				r.Post("/{policyID}/resolve", controllers.ResolveMarginPolicy(policyService, logg))
			})
			r.Route("/customs", func(r chi.Router) {
				r.Get("/", controllers.ListCustomsPolicies(policyService, logg))
				r.Post("/", controllers.CreateCustomsPolicy(policyService, logg))
				r.Get("/{policyID}", controllers.GetCustomsPolicy(policyService, logg))
				r.Put("/{policyID}/rules", controllers.ReplaceCustomsRules(policyService, logg))
				r.Post("/{policyID}/resolve", controllers.ResolveCustomsPolicy(policyService, logg))
			})
			r.Route("/scenario", func(r chi.Router) {
				r.Get("/", controllers.ListScenarioPolicies(policyService, logg))
				r.Post("/", controllers.CreateScenarioPolicy(policyService, logg))
				r.Get("/{policyID}", controllers.GetScenarioPolicy(policyService, logg))
				r.Put("/{policyID}/rules", controllers.ReplaceScenarioRules(policyService, logg))
				r.Post("/{policyID}/resolve", controllers.ResolveScenarioPolicy(policyService, logg))
			})
		})

		r.Route("/sheets", func(r chi.Router) {
			r.Get("/", controllers.ListSheets(pricingService, logg))
			r.Post("/", controllers.CreateSheet(pricingService, logg))
			r.Route("/{sheetID}", func(r chi.Router) {
				r.Get("/", controllers.GetSheet(pricingService, logg))
				r.Delete("/", controllers.DeleteSheet(pricingService, logg))
				r.Put("/lines", controllers.ReplaceSheetLines(pricingService, logg))
				r.Post("/recalculate", controllers.RecalculateSheet(pricingService, logg))
				r.Post("/overrides", controllers.SetSheetOverride(pricingService, logg))
				r.Post("/export", controllers.ExportSheet(pricingService, logg))
				r.Get("/quotations", controllers.ListSheetQuotations(pricingService, logg))
			})
		})

		r.Get("/quotations/{quotationID}", controllers.GetQuotation(pricingService, logg))

		r.Route("/logistics", func(r chi.Router) {
			r.Route("/containers", func(r chi.Router) {
				r.Get("/", controllers.ListContainerProfiles(logisticsService, logg))
				r.Post("/", controllers.CreateContainerProfile(logisticsService, logg))
			})

			r.Route("/shipments", func(r chi.Router) {
				r.Post("/", controllers.CreateShipment(logisticsService, logg))
				r.Get("/{shipmentID}", controllers.GetShipment(logisticsService, logg))
				r.Get("/{shipmentID}/metrics", controllers.GetShipmentMetrics(logisticsService, logg))
			})

			r.Route("/plans", func(r chi.Router) {
				r.Get("/", controllers.ListPlans(logisticsService, logg))
				r.Post("/", controllers.CreatePlan(logisticsService, logg))
				r.Route("/{planID}", func(r chi.Router) {
					r.Get("/", controllers.GetPlan(logisticsService, logg))
					r.Put("/shipments", controllers.SetPlanShipments(logisticsService, logg))
					r.Post("/recalculate", controllers.RecalculatePlan(logisticsService, logg))
					r.Get("/suggest", controllers.SuggestPlanShipments(logisticsService, logg))
					r.Post("/submit", controllers.SubmitPlan(logisticsService, logg))
					r.Post("/cancel", controllers.CancelPlan(logisticsService, logg))
				})
			})

			r.Route("/analyses", func(r chi.Router) {
				r.Get("/", controllers.ListAnalyses(logisticsService, logg))
				r.Post("/", controllers.AnalyzeSource(logisticsService, logg))
			})
		})
	})

	return r
}
