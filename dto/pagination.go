package dto

type Pagination struct {
	PageNo     int `json:"page_no"`
	PageSize   int `json:"page_size"`
	PageCount  int `json:"page_count"`
	TotalItems int `json:"total_items"`
}
