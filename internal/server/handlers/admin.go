package handlers

import (
	"log/slog"
	"net/http"

	"github.com/postmarket/postmarket/internal/errmsg"
	"github.com/postmarket/postmarket/internal/server/models"
)

func (h *Handlers) GetAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.storage.GetAdminStats(r.Context())
	if err != nil {
		h.log.Error("storage.GetAdminStats()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	ordersByStatus := make(map[string]int, len(stats.OrdersByStatus))
	for status, count := range stats.OrdersByStatus {
		ordersByStatus[string(status)] = count
	}

	recent := make([]models.OrderResponse, 0, len(stats.RecentOrders))
	for _, ord := range stats.RecentOrders {
		recent = append(recent, orderResponse(ord))
	}

	handleJSONResponse(w, http.StatusOK, models.AdminStatsResponse{
		TotalUsers:          stats.TotalUsers,
		ActiveUsers:         stats.ActiveUsers,
		TotalWebsites:       stats.TotalWebsites,
		ActiveWebsites:      stats.ActiveWebsites,
		TotalOrders:         stats.TotalOrders,
		OrdersByStatus:      ordersByStatus,
		CompletedRevenue:    stats.CompletedRevenue.InexactFloat64(),
		PendingFundRequests: stats.PendingFundRequests,
		PaidFundsTotal:      stats.PaidFundsTotal.InexactFloat64(),
		RecentOrders:        recent,
	})
}
