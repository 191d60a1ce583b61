// Package docs holds the OpenAPI document of the cart API served under
// /swagger. Regenerate it with `swag init -g cmd/server/main.go` after
// changing handler annotations.
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "{{.Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/products": {
            "get": {
                "description": "Page through the catalog",
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "List products",
                "parameters": [
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "page_size", "in": "query"},
                    {"type": "string", "description": "Sort key: name, price, stock, newest", "name": "order_by", "in": "query"},
                    {"type": "string", "description": "asc or desc", "name": "order_dir", "in": "query"},
                    {"type": "string", "description": "Name search", "name": "search", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProductPage"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Get a product",
                "parameters": [
                    {"type": "string", "description": "Product ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProductResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/cart": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Get the caller's cart",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CartResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Empty the caller's cart",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CartResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/cart/items": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Add units of a product",
                "description": "Adds quantity units (default 1). Fails with ERR_INSUFFICIENT_STOCK when the line would exceed stock.",
                "parameters": [
                    {"description": "Item to add", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CartResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Insufficient stock", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/cart/items/{id}": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Set the quantity of a line",
                "description": "Zero removes the line.",
                "parameters": [
                    {"type": "string", "description": "Product ID", "name": "id", "in": "path", "required": true},
                    {"description": "New quantity", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetQuantityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CartResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Insufficient stock", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Remove a line",
                "parameters": [
                    {"type": "string", "description": "Product ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CartResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "AddItemRequest": {
            "type": "object",
            "required": ["productId"],
            "properties": {
                "productId": {"type": "string"},
                "quantity": {"type": "integer", "minimum": 1, "maximum": 999}
            }
        },
        "SetQuantityRequest": {
            "type": "object",
            "required": ["quantity"],
            "properties": {
                "quantity": {"type": "integer", "minimum": 0, "maximum": 999}
            }
        },
        "Product": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "price": {"type": "string", "example": "129.00"},
                "image": {"type": "string"},
                "stock": {"type": "integer"}
            }
        },
        "CartItem": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "productId": {"type": "string"},
                "name": {"type": "string"},
                "unitPrice": {"type": "string", "example": "129.00"},
                "quantity": {"type": "integer"},
                "image": {"type": "string"},
                "stock": {"type": "integer"}
            }
        },
        "Cart": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/CartItem"}},
                "total": {"type": "string", "example": "258.00"},
                "itemCount": {"type": "integer"}
            }
        },
        "ErrorInfo": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "ERR_INSUFFICIENT_STOCK"},
                "message": {"type": "string"},
                "request_id": {"type": "string"},
                "details": {"type": "array", "items": {"type": "object"}}
            }
        },
        "Meta": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "CartResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"$ref": "#/definitions/Cart"}
            }
        },
        "ProductResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"$ref": "#/definitions/Product"}
            }
        },
        "ProductPage": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/Product"}},
                "meta": {"$ref": "#/definitions/Meta"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": false},
                "error": {"$ref": "#/definitions/ErrorInfo"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token authentication. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Storefront Cart API",
	Description:      "Catalog reads and the server-authoritative cart the storefront engine reconciles against.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
