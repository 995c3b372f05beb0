package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/orders_backend/config"
	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const defaultPort = "8080"

// Read-only lookup API over the orders table. Numbers come back exactly as
// stored (no float64 round trip).
func main() {
	logger := config.GetLogger()

	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	table, err := config.OrdersTable()
	if err != nil {
		logger.Fatal("api: " + err.Error())
	}
	dynamoCli, err := config.GetDynamoClient(context.Background())
	if err != nil {
		logger.Fatal("api: init dynamo: " + err.Error())
	}

	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "OPTIONS")
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/api/orders/:order_id", getOrderHandler(dynamoCli, table))

	if err := r.Run(":" + port); err != nil {
		logger.Fatal("api: " + err.Error())
	}
}

func getOrderHandler(cli *dynamodb.Client, table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")
		out, err := cli.GetItem(c.Request.Context(), &dynamodb.GetItemInput{
			TableName: aws.String(table),
			Key: map[string]types.AttributeValue{
				"order_id": &types.AttributeValueMemberS{Value: orderID},
			},
		})
		if err != nil {
			config.LogError(config.GetLogger(), "api", "getOrderHandler", orderID, nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		if out.Item == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}

		record, err := models.FromAttributeValues(out.Item)
		if err != nil {
			config.LogError(config.GetLogger(), "api", "getOrderHandler", orderID, nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "malformed record"})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
