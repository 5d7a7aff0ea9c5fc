package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	doctorCmd := &cobra.Command{Use: "doctor", Short: "Doctor operations"}

	// login
	var doctorUser, doctorPass string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as the doctor and print a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"username": doctorUser, "password": doctorPass}
			data, err := doPostJSON(endpoint("/auth/doctor/login", nil), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	loginCmd.Flags().StringVarP(&doctorUser, "username", "u", "doctor", "Doctor username")
	loginCmd.Flags().StringVarP(&doctorPass, "password", "p", "doctor", "Doctor password")
	doctorCmd.AddCommand(loginCmd)

	// patients
	patientsCmd := &cobra.Command{
		Use:   "patients",
		Short: "List registered patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(endpoint("/doctor/patients", nil))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	doctorCmd.AddCommand(patientsCmd)

	// add-medication
	var medPatient, medName, medTimes, medInstructions string
	var medTimesPerDay, medDurationDays int
	addMedCmd := &cobra.Command{
		Use:   "add-medication",
		Short: "Prescribe a medication for a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			if medPatient == "" || medName == "" {
				return fmt.Errorf("--patient and --name required")
			}
			q := url.Values{}
			if medDurationDays > 0 {
				q.Set("duration_days", strconv.Itoa(medDurationDays))
			}
			payload := map[string]interface{}{
				"patient_username": medPatient,
				"name":             medName,
				"times_per_day":    medTimesPerDay,
				"specific_times":   medTimes,
				"instructions":     medInstructions,
				"active":           true,
			}
			data, err := doPostJSON(endpoint("/doctor/medications", q), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	addMedCmd.Flags().StringVarP(&medPatient, "patient", "P", "", "Patient username (required)")
	addMedCmd.Flags().StringVarP(&medName, "name", "n", "", "Medication name (required)")
	addMedCmd.Flags().IntVarP(&medTimesPerDay, "times-per-day", "k", 1, "Doses per day")
	addMedCmd.Flags().StringVarP(&medTimes, "at", "T", "", "Comma-separated HH:MM dose times")
	addMedCmd.Flags().StringVarP(&medInstructions, "instructions", "i", "", "Free-text instructions")
	addMedCmd.Flags().IntVarP(&medDurationDays, "days", "d", 0, "Prescription length in days (default 7)")
	_ = addMedCmd.MarkFlagRequired("patient")
	_ = addMedCmd.MarkFlagRequired("name")
	doctorCmd.AddCommand(addMedCmd)

	// medications
	medsCmd := &cobra.Command{
		Use:   "medications PATIENT_USERNAME",
		Short: "List a patient's medications with dose logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"patient_username": {args[0]}}
			data, err := doGet(endpoint("/doctor/patient-medications", q))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	doctorCmd.AddCommand(medsCmd)

	// add-goal
	addGoalCmd := &cobra.Command{
		Use:   "add-goal PATIENT_USERNAME TEXT",
		Short: "Assign a goal to a patient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"patient_username": {args[0]}}
			data, err := doPostJSON(endpoint("/doctor/goals", q), map[string]interface{}{"text": args[1]})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	doctorCmd.AddCommand(addGoalCmd)

	// goals
	goalsCmd := &cobra.Command{
		Use:   "goals PATIENT_USERNAME",
		Short: "List a patient's goals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"patient_username": {args[0]}}
			data, err := doGet(endpoint("/doctor/patient-goals", q))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	doctorCmd.AddCommand(goalsCmd)

	rootCmd.AddCommand(doctorCmd)
}
