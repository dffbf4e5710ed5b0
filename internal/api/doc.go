// Package api provides the emergency escalation REST API.
//
//	@title						Emergency Escalation API
//	@version					1.0
//	@description				Triggers emergencies, notifies responder networks and records the escalation trail.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package api
