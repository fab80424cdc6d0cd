package main

import (
	"fmt"

	"github.com/apitest-engine/apitestd/batch"
)

func main() {
	// Register the SIP batch processor
	err := RegisterSIPBatchProcessor()
	if err != nil {
		fmt.Println("Failed to register SIP batch processor:", err)
		return
	}

	fmt.Println("SIP batch processor registered successfully")
}

func RegisterSIPBatchProcessor() error {
	initializer := &SIPInitializer{}
	processor := &SIPBatchProcessor{}

	// Register the initializer
	err := batch.RegisterInitializer("SIPApp", initializer)
	if err != nil {
		return fmt.Errorf("failed to register SIP initializer: %v", err)
	}

	// Register the batch processor
	err = batch.RegisterProcessor("SIPApp", "processSIPTransactions", processor)
	if err != nil {
		return fmt.Errorf("failed to register SIP batch processor: %v", err)
	}

	return nil
}

type SIPBatchProcessor struct {
	// Add any fields necessary for processing SIP transactions.
}

func (p *SIPBatchProcessor) DoBatchJob(initBlock any, context batch.JSONstr, line int, input batch.JSONstr) (status batch.BatchStatus_t, result batch.JSONstr, messages []batch.ErrorMessage, blobRows map[string]string, err error) {
	// Implement the processing logic for each SIP transaction here.
	// Use the initBlock for any pre-initialized resources.

	// Example processing logic:
	// 1. Parse the input JSON to extract relevant data for the SIP transaction.
	// 2. Perform the necessary operations using the extracted data.
	// 3. Generate the result, messages, and blobRows based on the processing outcome.
	// 4. Set the appropriate status (e.g., BatchSuccess or BatchFailed).
	// 5. Return the status, result, messages, blobRows, and any error.

	// Placeholder implementation:
	status = batch.BatchSuccess
	result = `{"message": "SIP transaction processed successfully"}`
	messages = nil
	blobRows = nil
	err = nil

	return status, result, messages, blobRows, err
}

type SIPInitBlock struct {
	// Resources like database connections
}

func (ib *SIPInitBlock) Close() error {
	// Clean up resources
	return nil
}

type SIPInitializer struct{}

func (si *SIPInitializer) Init(app string) (batch.InitBlock, error) {
	// Initialize resources for SIP batch processing
	return &SIPInitBlock{}, nil
}

// package main

// import (
// 	"github.com/apitest-engine/apitestd/batch"
// 	"github.com/apitest-engine/apitestd/wscutils"
// )

// type SIPBatchProcessor struct {
// 	// Add any fields necessary for processing SIP transactions.
// }

// func (p *SIPBatchProcessor) DoBatchJob(initBlock any, context batch.JSONstr, line int, input batch.JSONstr) (status batch.BatchStatus_t, result batch.JSONstr, messages []wscutils.ErrorMessage, blobRows map[string]string, err error) {
// 	// Implement the processing logic for each SIP transaction here.
// 	// Use the initBlock for any pre-initialized resources.
// 	return
// }

// type SIPInitBlock struct {
// 	// Resources like database connections
// }

// func (ib *SIPInitBlock) Close() error {
// 	// Clean up resources
// 	return nil
// }

// type SIPInitializer struct{}

// func (si *SIPInitializer) Init(app string) (batch.InitBlock, error) {
// 	// Initialize resources for SIP batch processing
// 	return &SIPInitBlock{}, nil
// }
// func RegisterSIPBatchProcessor() error {
// 	initializer := &SIPInitializer{}
// 	processor := &SIPBatchProcessor{}

// 	// Register the initializer
// 	err := batch.RegisterInitializer("SIPApp", initializer)
// 	if err != nil {
// 		return err
// 	}

// 	// Register the batch processor
// 	return batch.RegisterProcessor("SIPApp", "processSIPTransactions", processor)
// }
