package model

type Advice struct {
	ID          int64  `json:"id"`
	Query       string `json:"query"`
	Response    string `json:"response"`
	SearchCount int64  `json:"search_count"`
	Ctime       int64  `json:"ctime"`
}

type QueryLog struct {
	ID     int64  `json:"id"`
	Query  string `json:"query"`
	Source string `json:"source"`
	Ctime  int64  `json:"ctime"`
}
