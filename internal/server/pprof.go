package server

import (
	"log"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// StartPprofServer serves the profiling endpoints on their own port, which is
// never exposed publicly; reach it over an SSH tunnel.
func StartPprofServer(port string) {
	pprofRouter := gin.New()
	pprof.Register(pprofRouter)

	go func() {
		log.Printf("pprof listening on %s", port)
		if err := pprofRouter.Run(port); err != nil {
			log.Fatalf("pprof server failed: %v", err)
		}
	}()
}
