package domain

// DashboardStats is the aggregate read model behind the admin dashboard.
type DashboardStats struct {
	TotalTickets      int64                    `json:"total_tickets"`
	TicketsByStatus   map[TicketStatus]int64   `json:"tickets_by_status"`
	TicketsByPriority map[TicketPriority]int64 `json:"tickets_by_priority"`
	TotalUsers        int64                    `json:"total_users"`
	UsersByRole       map[Role]int64           `json:"users_by_role"`
	ActiveUsers       int64                    `json:"active_users"`
	InactiveUsers     int64                    `json:"inactive_users"`
	AverageRating     *float64                 `json:"average_rating"`
}
