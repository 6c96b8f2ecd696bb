// Package rssopinion registers the RSSOpinion HTTP function with the Functions Framework.
package rssopinion

import (
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/samvad-hq/rss-opinion/internal/function"
	"github.com/samvad-hq/rss-opinion/internal/logger"
)

// FunctionName is the entry point name used at deploy time.
const FunctionName = "RSSOpinion"

func init() {
	log, err := logger.New("info", "json")
	if err != nil {
		log = logger.NopLogger{}
	}
	functions.HTTP(FunctionName, function.NewHandler(function.Invoke, log).ServeHTTP)
}
