// Package odata is a read-only client for OData v3 services.
//
// A DataSource describes one service (host plus optional base path) and sends
// requests through an injected Doer, normally an *http.Client. Requests are
// either a ListRequest for an entity set or a GetRequest for one entity by
// key; both carry ordered QueryClauses ($filter, $expand, $select, ...).
//
// Example usage:
//
//	ds, err := odata.New(http.DefaultClient, "oda.ft.dk", "/api",
//		odata.WithLimiter(ratelimit.PerSecond(5)),
//	)
//	if err != nil {
//		return err
//	}
//
//	req, _ := odata.NewGetRequest("Dokument", 24)
//	doc, err := odata.Fetch[Dokument](ctx, ds, req)
//
//	list := odata.NewListRequest("Dokument").
//		Where("typeid", odata.Equal, "3").
//		OrderBy("id", odata.Descending)
//	docs, err := odata.FetchPaged[Dokument](ctx, ds, list)
//
// Both verbose JSON ({"d": {"results": [...], "__next": "..."}}) and JSON
// light ({"value": [...], "odata.nextLink": "..."}) payloads are accepted.
//
// Every error is an *Error whose Kind is one of KindConstruction, KindURL,
// KindTransport, KindHTTPStatus, KindDecode or KindPagination. Nothing is
// retried.
package odata
