package publish

// Result итог записи одной модели в удаленный репозиторий
type Result struct {
	Success bool   `json:"success"`
	URI     string `json:"uri,omitempty"`
	Version string `json:"cid,omitempty"`
	Error   string `json:"error,omitempty"`
	// Queued неудачная запись поставлена в очередь повторов
	Queued bool `json:"queued,omitempty"`
	// Err исходная ошибка; по ней вызывающий код отличает ошибки аутентификации
	Err error `json:"-"`
}

func succeeded(uri, version string) Result {
	return Result{Success: true, URI: uri, Version: version}
}

func failed(err error) Result {
	return Result{Error: err.Error(), Err: err}
}

// ReferenceResult итог двухфазной записи основной записи и записи-ссылки
type ReferenceResult struct {
	Success          bool   `json:"success"`
	MainURI          string `json:"main_uri,omitempty"`
	MainVersion      string `json:"main_cid,omitempty"`
	ReferenceURI     string `json:"reference_uri,omitempty"`
	ReferenceVersion string `json:"reference_cid,omitempty"`
	RolledBack       bool   `json:"rolled_back,omitempty"`
	Error            string `json:"error,omitempty"`
	Err              error  `json:"-"`
}

// HasMainOnly основная запись есть, ссылки нет
func (r ReferenceResult) HasMainOnly() bool {
	return r.MainURI != "" && r.ReferenceURI == ""
}

// IsFullySynced записаны обе записи
func (r ReferenceResult) IsFullySynced() bool {
	return r.Success && r.MainURI != "" && r.ReferenceURI != ""
}
