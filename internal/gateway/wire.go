package gateway

const DocumentServiceName = "collabspace.v1.DocumentService"

const (
	DocumentServiceInsertProcedure = "/" + DocumentServiceName + "/Insert"
	DocumentServiceGetProcedure    = "/" + DocumentServiceName + "/Get"
	DocumentServiceQueryProcedure  = "/" + DocumentServiceName + "/Query"
	DocumentServiceUpdateProcedure = "/" + DocumentServiceName + "/Update"
)

type InsertRequest struct {
	Collection string `json:"collection"`
	Fields     Fields `json:"fields"`
}

type InsertResponse struct {
	ID string `json:"id"`
}

type GetRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

type GetResponse struct {
	Document *Document `json:"document,omitempty"`
	Found    bool      `json:"found"`
}

type QueryRequest struct {
	Collection string    `json:"collection"`
	Predicate  Predicate `json:"predicate"`
}

type QueryResponse struct {
	Documents []*Document `json:"documents"`
}

type UpdateRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Fields     Fields `json:"fields"`
}

type UpdateResponse struct{}
