// Package docs holds the OpenAPI document served under /swagger. Regenerate
// with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/answers/{id}": {
            "patch": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "responses"
                ],
                "summary": "Update answer",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Answer ID",
                        "type": "integer",
                        "format": "int64"
                    },
                    {
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "description": "New value",
                        "schema": {
                            "$ref": "#/definitions/response.AnswerInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/response.Answer"
                        }
                    },
                    "400": {
                        "description": "invalid id or answer",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "forbidden or survey closed",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/answers/{id}/file": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/octet-stream"
                ],
                "tags": [
                    "responses"
                ],
                "summary": "Download answer file",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Answer ID",
                        "type": "integer",
                        "format": "int64"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "invalid answer id or not a file answer",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Log in",
                "parameters": [
                    {
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "description": "Credentials",
                        "schema": {
                            "$ref": "#/definitions/api.authRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.authResponse"
                        }
                    },
                    "400": {
                        "description": "invalid body",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "401": {
                        "description": "invalid credentials",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "email not verified",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "500": {
                        "description": "server error",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Current user",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/user.User"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/auth/register": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Register a user",
                "parameters": [
                    {
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "description": "Signup payload",
                        "schema": {
                            "$ref": "#/definitions/user.RegisterInput"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.authResponse"
                        }
                    },
                    "400": {
                        "description": "invalid body or fields",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "409": {
                        "description": "email already registered",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "500": {
                        "description": "server error",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/auth/verify": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Verify email",
                "parameters": [
                    {
                        "name": "code",
                        "in": "query",
                        "required": true,
                        "description": "Verification code",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "missing or invalid code",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "500": {
                        "description": "server error",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/questions/{id}": {
            "patch": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "questions"
                ],
                "summary": "Update question",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Question ID",
                        "type": "integer",
                        "format": "int64"
                    },
                    {
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "$ref": "#/definitions/survey.QuestionUpdate"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/question.Question"
                        }
                    },
                    "400": {
                        "description": "invalid id, body or settings",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "not the creator",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/responses/{id}": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "responses"
                ],
                "summary": "Get response",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Response ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    },
                    "400": {
                        "description": "invalid response id",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "forbidden",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            },
            "delete": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "responses"
                ],
                "summary": "Delete response",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Response ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "invalid response id",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "forbidden or survey closed",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/surveys": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "surveys"
                ],
                "summary": "Create survey",
                "parameters": [
                    {
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "description": "Survey with questions",
                        "schema": {
                            "$ref": "#/definitions/survey.CreateInput"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/survey.Survey"
                        }
                    },
                    "400": {
                        "description": "invalid body or fields",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "500": {
                        "description": "server error",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            },
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "surveys"
                ],
                "summary": "List surveys",
                "parameters": [
                    {
                        "name": "mine",
                        "in": "query",
                        "required": false,
                        "description": "Only surveys created by the caller",
                        "type": "boolean"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/survey.Survey"
                            }
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "500": {
                        "description": "server error",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/surveys/{id}": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "surveys"
                ],
                "summary": "Get survey",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Survey ID",
                        "type": "integer",
                        "format": "int64"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/survey.Survey"
                        }
                    },
                    "400": {
                        "description": "invalid survey id",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            },
            "patch": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "surveys"
                ],
                "summary": "Update survey",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Survey ID",
                        "type": "integer",
                        "format": "int64"
                    },
                    {
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "$ref": "#/definitions/survey.UpdateInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/survey.Survey"
                        }
                    },
                    "400": {
                        "description": "invalid id or body",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "not the creator",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/surveys/{id}/questions": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "questions"
                ],
                "summary": "Add question",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Survey ID",
                        "type": "integer",
                        "format": "int64"
                    },
                    {
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "description": "Question definition",
                        "schema": {
                            "$ref": "#/definitions/question.Input"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/question.Question"
                        }
                    },
                    "400": {
                        "description": "invalid id, body or settings",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "401": {
                        "description": "unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "not the creator",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/surveys/{id}/responses": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "responses"
                ],
                "summary": "Submit response",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Survey ID",
                        "type": "integer",
                        "format": "int64"
                    },
                    {
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "description": "Answers",
                        "schema": {
                            "$ref": "#/definitions/response.SubmitInput"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    },
                    "400": {
                        "description": "invalid answers",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "401": {
                        "description": "authentication required",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "survey closed",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "429": {
                        "description": "too many submissions",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/surveys/{id}/statistics/": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "statistics"
                ],
                "summary": "Survey statistics report",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Survey ID",
                        "type": "integer",
                        "format": "int64"
                    },
                    {
                        "name": "period",
                        "in": "query",
                        "required": false,
                        "description": "day, week, month or quarter",
                        "type": "string"
                    },
                    {
                        "name": "group_by",
                        "in": "query",
                        "required": false,
                        "description": "location, gender or age",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/stats.Report"
                        }
                    },
                    "400": {
                        "description": "invalid period or field",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "not the creator or survey still active",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/surveys/{id}/statistics/correlation": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "statistics"
                ],
                "summary": "Question correlations",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Survey ID",
                        "type": "integer",
                        "format": "int64"
                    },
                    {
                        "name": "q1",
                        "in": "query",
                        "required": false,
                        "description": "First question ID",
                        "type": "integer",
                        "format": "int64"
                    },
                    {
                        "name": "q2",
                        "in": "query",
                        "required": false,
                        "description": "Second question ID",
                        "type": "integer",
                        "format": "int64"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/stats.Correlation"
                        }
                    },
                    "400": {
                        "description": "invalid question pair",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "not the creator or survey still active",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/surveys/{id}/statistics/patterns": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "statistics"
                ],
                "summary": "Demographic patterns",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Survey ID",
                        "type": "integer",
                        "format": "int64"
                    },
                    {
                        "name": "field",
                        "in": "query",
                        "required": true,
                        "description": "location, gender or age",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/stats.Pattern"
                        }
                    },
                    "400": {
                        "description": "invalid field",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "not the creator or survey still active",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/surveys/{id}/statistics/questions": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "statistics"
                ],
                "summary": "Per-question summaries",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Survey ID",
                        "type": "integer",
                        "format": "int64"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/stats.QuestionSummary"
                            }
                        }
                    },
                    "403": {
                        "description": "not the creator or survey still active",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        },
        "/surveys/{id}/statistics/trend": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "statistics"
                ],
                "summary": "Response trend",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Survey ID",
                        "type": "integer",
                        "format": "int64"
                    },
                    {
                        "name": "period",
                        "in": "query",
                        "required": false,
                        "description": "day, week, month or quarter",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/stats.Trend"
                        }
                    },
                    "400": {
                        "description": "invalid period",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "403": {
                        "description": "not the creator or survey still active",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    },
                    "404": {
                        "description": "not found",
                        "schema": {
                            "$ref": "#/definitions/api.errorBody"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "api.authResponse": {
            "type": "object"
        },
        "api.errorBody": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "fields": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                }
            }
        },
        "question.Input": {
            "type": "object"
        },
        "question.Question": {
            "type": "object"
        },
        "response.Answer": {
            "type": "object"
        },
        "response.AnswerInput": {
            "type": "object"
        },
        "response.Response": {
            "type": "object"
        },
        "response.SubmitInput": {
            "type": "object"
        },
        "stats.Correlation": {
            "type": "object"
        },
        "stats.Pattern": {
            "type": "object"
        },
        "stats.QuestionSummary": {
            "type": "object"
        },
        "stats.Report": {
            "type": "object"
        },
        "stats.Trend": {
            "type": "object"
        },
        "survey.CreateInput": {
            "type": "object"
        },
        "survey.QuestionUpdate": {
            "type": "object"
        },
        "survey.Survey": {
            "type": "object"
        },
        "survey.UpdateInput": {
            "type": "object"
        },
        "user.RegisterInput": {
            "type": "object"
        },
        "user.User": {
            "type": "object"
        },
        "api.authRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
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
	Title:            "Survey Insights API",
	Description:      "Surveys with typed answer validation and post-close statistics",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
