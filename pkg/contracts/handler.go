package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by every HTTP handler group that can attach its
// routes to the application router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
