package models

// ImportRowResult reports one spreadsheet row's outcome. Rows are processed
// independently; a failed row never aborts the batch.
type ImportRowResult struct {
	Row       int    `json:"row"`
	StudentNo string `json:"student_no,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ImportReport summarises a bulk student import.
type ImportReport struct {
	Total    int               `json:"total"`
	Imported int               `json:"imported"`
	Failed   int               `json:"failed"`
	Rows     []ImportRowResult `json:"rows"`
}
