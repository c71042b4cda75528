// Package docs registers the OpenAPI document served under /swagger.
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new user", "responses": {"201": {"description": "Created user"}, "400": {"description": "Invalid input"}, "409": {"description": "Email or username taken"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Log in and receive a bearer token", "responses": {"200": {"description": "Token and user"}, "401": {"description": "Invalid credentials"}}}},
        "/auth/me": {"get": {"tags": ["auth"], "summary": "Current user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "User"}}}},
        "/competitions": {"get": {"tags": ["competitions"], "summary": "List competitions", "responses": {"200": {"description": "Competitions"}}}},
        "/competitions/creation/upload": {"post": {"tags": ["competitions"], "summary": "Presigned URL for uploading a competition bundle", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Upload grant"}}}},
        "/competitions/creation": {"post": {"tags": ["competitions"], "summary": "Create a competition from an uploaded bundle", "security": [{"BearerAuth": []}], "responses": {"202": {"description": "Token"}, "400": {"description": "Missing or unknown upload id"}}}},
        "/competitions/creation/{token}": {"get": {"tags": ["competitions"], "summary": "Status of a competition creation job", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Status"}, "404": {"description": "Unknown token"}}}},
        "/competitions/{competitionID}": {
            "get": {"tags": ["competitions"], "summary": "Get a competition with its phases", "responses": {"200": {"description": "Competition"}, "404": {"description": "Not found"}}},
            "patch": {"tags": ["competitions"], "summary": "Edit title and description", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Competition"}, "403": {"description": "Not an administrator"}}},
            "delete": {"tags": ["competitions"], "summary": "Delete a competition", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "Deleted"}, "403": {"description": "Not the creator"}}}
        },
        "/competitions/{competitionID}/publish": {"post": {"tags": ["competitions"], "summary": "Publish a competition", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "Published"}, "400": {"description": "A phase has no reference data"}}}},
        "/competitions/{competitionID}/unpublish": {"post": {"tags": ["competitions"], "summary": "Unpublish a competition", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "Unpublished"}}}},
        "/competitions/{competitionID}/phases": {"get": {"tags": ["competitions"], "summary": "List the phases of a competition", "responses": {"200": {"description": "Phases"}}}},
        "/competitions/{competitionID}/participate": {"post": {"tags": ["participants"], "summary": "Join a competition", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Request created"}, "200": {"description": "Already a participant"}}}},
        "/competitions/{competitionID}/mystatus": {"get": {"tags": ["participants"], "summary": "Caller's participation status", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Status"}, "404": {"description": "Not a participant"}}}},
        "/competitions/{competitionID}/participants": {"get": {"tags": ["participants"], "summary": "List participants of a competition", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Participants"}}}},
        "/competitions/{competitionID}/participants/{participantID}/status": {"put": {"tags": ["participants"], "summary": "Approve or deny a participant", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Updated participant"}, "400": {"description": "Unknown status"}, "403": {"description": "Not an administrator"}}}},
        "/competitions/{competitionID}/submissions/upload": {"post": {"tags": ["submissions"], "summary": "Presigned URL for uploading a submission file", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Upload grant"}}}},
        "/competitions/{competitionID}/submissions": {
            "get": {"tags": ["submissions"], "summary": "Caller's submissions", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Submissions"}}},
            "post": {"tags": ["submissions"], "summary": "Submit an uploaded file for evaluation", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Submission"}, "403": {"description": "Not approved, phase closed or migration in progress"}}}
        },
        "/competitions/{competitionID}/submissions/{submissionID}": {"get": {"tags": ["submissions"], "summary": "Get one of the caller's submissions", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Submission"}, "404": {"description": "Not found"}}}},
        "/competitions/{competitionID}/submissions/{submissionID}/leaderboard": {
            "post": {"tags": ["leaderboard"], "summary": "Put a submission on the leaderboard", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Entry created"}, "200": {"description": "Already on the leaderboard"}}},
            "delete": {"tags": ["leaderboard"], "summary": "Take a submission off the leaderboard", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Removed entry id"}, "403": {"description": "Not on the leaderboard or phase closed"}}}
        },
        "/competitions/{competitionID}/phases/{phaseNumber}/leaderboard": {"get": {"tags": ["leaderboard"], "summary": "Ranked leaderboard of a phase", "responses": {"200": {"description": "Groups"}}}},
        "/competitions/{competitionID}/leaderboard/entries": {"get": {"tags": ["leaderboard"], "summary": "Raw leaderboard entries of a phase", "responses": {"200": {"description": "Entries"}}}},
        "/ws/phases/{phaseID}/leaderboard": {"get": {"tags": ["leaderboard"], "summary": "Live leaderboard updates of a phase", "responses": {"101": {"description": "Switching protocols"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Competition System API",
	Description:      "Scientific competitions: participation, phased submissions and leaderboards.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
