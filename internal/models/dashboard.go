package models

import "time"

// Dashboard — дашборд консоли. Содержимое и отрисовка находятся за
// пределами этого сервиса, здесь хранится только то, что нужно
// фоновым задачам обновления.
type Dashboard struct {
	UID       string    // Идентификатор дашборда
	Name      string    // Название
	OwnerUID  string    // Владелец
	CreatedAt time.Time // Дата создания
}

// DashboardItem — элемент дашборда с запросом к семантическому движку.
type DashboardItem struct {
	ID           int    // Идентификатор элемента
	DashboardUID string // Дашборд, которому принадлежит элемент
	Title        string // Заголовок
	Query        string // Запрос, исполняемый движком при обновлении
	Position     int    // Порядок на дашборде
}

// ItemResult — результат исполнения запроса одного элемента.
type ItemResult struct {
	ItemID int              `json:"item_id"`
	Title  string           `json:"title"`
	Rows   []map[string]any `json:"rows"`
	Error  string           `json:"error,omitempty"`
}

// DashboardSnapshot — кэшируемый результат фонового обновления дашборда.
type DashboardSnapshot struct {
	DashboardUID string       `json:"dashboard_uid"`
	RefreshedAt  time.Time    `json:"refreshed_at"`
	Items        []ItemResult `json:"items"`
}

// Recommendation — рекомендация нового вопроса/элемента для дашборда,
// сгенерированная фоновой задачей.
type Recommendation struct {
	Title string `json:"title"`
	Query string `json:"query"`
}

// RecommendationSet — кэшируемый результат задачи генерации рекомендаций.
type RecommendationSet struct {
	DashboardUID string           `json:"dashboard_uid"`
	GeneratedAt  time.Time        `json:"generated_at"`
	Items        []Recommendation `json:"items"`
}
