// Package services holds the business logic behind the HTTP handlers.
//
// Services defined in this package:
//   - MatcherService: ranks the writers available for an exam
//   - LifecycleService: creates match requests and moves them through their statuses
//   - ExamService: the student's exam requests
//   - NotificationService: a session's match requests joined with contacts and exams
//   - AuthService: registration, login and session teardown
//   - ProfileService: the caller's own profile
//
// Every operation takes the caller's models.Session explicitly.
package services
