package health

type Input struct{}

type Output struct {
	Body HResponse
}

// HResponse состояние сервиса и локального хранилища
type HResponse struct {
	Status string `json:"status" example:"OK" doc:"Health status of the service"`
	Store  string `json:"store" enum:"ok,unchecked" doc:"Local store check result"`
}
