package services

// Services defined in this package:
// - TranscriptService: transcript upload, extraction, corrections, matching and evaluation
// - PrerequisiteService: the prerequisite requirement catalog
