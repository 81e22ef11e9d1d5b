// Package results provides the local index of archived redaction results.
//
// Each row links a backend task id to the chat it was produced in and the
// archive location of the redacted image (a file path or an s3:// URI). The
// CLI lists it with the "archive" command.
//
//	repo := results.NewSQLiteRepository(db)
//	_ = repo.Save(ctx, &models.ArchivedResult{TaskID: id, ChatID: 7, Location: loc})
//	list, _ := repo.ListByChat(ctx, 7)
package results
